package errors

import "errors"

var (
	ErrUnauthorized           = errors.New("caller is not authorized")
	ErrPaused                 = errors.New("governance is paused")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidRound           = errors.New("round window is invalid")
	ErrInvalidQuorum          = errors.New("quorum threshold out of range")
	ErrInvalidParticipation   = errors.New("minimum participation out of range")
	ErrInvalidHeight          = errors.New("height must be monotonically non-decreasing")
	ErrRoundNotFound          = errors.New("round not found")
	ErrRoundNotActive         = errors.New("round is not active")
	ErrAlreadyFinalized       = errors.New("round is already finalized")
	ErrMinParticipationNotMet = errors.New("minimum participation not met")
	ErrCandidateNotFound      = errors.New("candidate not found")
	ErrProposalNotFound       = errors.New("proposal not found")
	ErrVoterNotEligible       = errors.New("voter is not eligible")
	ErrAlreadyVoted           = errors.New("voter already voted in this round")
	ErrSelfDelegation         = errors.New("cannot delegate to self")
	ErrDelegationExists       = errors.New("active delegation already exists")
	ErrNoActiveDelegation     = errors.New("no active delegation found")
	ErrStateNotInitialized    = errors.New("engine state not initialized")
	ErrConflict               = errors.New("conflicting write")
)
