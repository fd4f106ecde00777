package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	votingengine "agora/contexts/governance/voting-engine"
	governanceerrors "agora/contexts/governance/voting-engine/domain/errors"
	governancehttp "agora/contexts/governance/voting-engine/transport/http"
	_ "agora/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	governance votingengine.Module
}

func New(governance votingengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /api/governance/v1/state", s.handleState)
	s.mux.HandleFunc("POST /api/governance/v1/roles", s.handleSetRole)
	s.mux.HandleFunc("POST /api/governance/v1/voters", s.handleRegisterVoter)
	s.mux.HandleFunc("GET /api/governance/v1/voters/{account}", s.handleGetVoter)
	s.mux.HandleFunc("POST /api/governance/v1/pause", s.handleSetPause)
	s.mux.HandleFunc("POST /api/governance/v1/ownership", s.handleTransferOwnership)
	s.mux.HandleFunc("POST /api/governance/v1/height", s.handleAdvanceHeight)

	s.mux.HandleFunc("POST /api/governance/v1/rounds", s.handleCreateRound)
	s.mux.HandleFunc("GET /api/governance/v1/rounds/{round_id}", s.handleGetRound)
	s.mux.HandleFunc("POST /api/governance/v1/rounds/{round_id}/activate", s.handleActivateRound)
	s.mux.HandleFunc("POST /api/governance/v1/rounds/{round_id}/finalize", s.handleFinalizeRound)
	s.mux.HandleFunc("GET /api/governance/v1/rounds/{round_id}/results", s.handleRoundResults)

	s.mux.HandleFunc("POST /api/governance/v1/rounds/{round_id}/candidates", s.handleAddCandidate)
	s.mux.HandleFunc("GET /api/governance/v1/rounds/{round_id}/candidates", s.handleListCandidates)
	s.mux.HandleFunc("GET /api/governance/v1/rounds/{round_id}/candidates/{candidate_id}", s.handleGetCandidate)
	s.mux.HandleFunc("GET /api/governance/v1/rounds/{round_id}/candidates/{candidate_id}/tally", s.handleGetTally)

	s.mux.HandleFunc("POST /api/governance/v1/rounds/{round_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/governance/v1/rounds/{round_id}/votes/{voter}", s.handleHasVoted)
	s.mux.HandleFunc("GET /api/governance/v1/rounds/{round_id}/voting-power/{voter}", s.handleVotingPower)

	s.mux.HandleFunc("POST /api/governance/v1/rounds/{round_id}/delegation", s.handleDelegate)
	s.mux.HandleFunc("DELETE /api/governance/v1/rounds/{round_id}/delegation", s.handleRevokeDelegation)
	s.mux.HandleFunc("GET /api/governance/v1/rounds/{round_id}/delegations/{delegator}", s.handleGetDelegation)
	s.mux.HandleFunc("GET /api/governance/v1/rounds/{round_id}/delegate-power/{delegate}", s.handleDelegatePower)

	s.mux.HandleFunc("POST /api/governance/v1/proposals", s.handleCreateProposal)
	s.mux.HandleFunc("GET /api/governance/v1/proposals/{proposal_id}", s.handleGetProposal)

	s.mux.HandleFunc("GET /api/governance/v1/events", s.handleListEvents)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.StateHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.SetRoleHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.RegisterVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.RegisterVoterHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	resp, found, err := s.governance.Handler.VoterHandler(r.Context(), account)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	if !found {
		writeGovernanceError(w, http.StatusNotFound, "voter_not_found", "voter is not registered")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetPause(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.PauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.SetPauseHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.TransferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.TransferOwnershipHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdvanceHeight(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.AdvanceHeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.AdvanceHeightHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.CreateRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CreateRoundHandler(r.Context(), caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.RoundHandler(r.Context(), roundID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActivateRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	if err := s.governance.Handler.ActivateRoundHandler(r.Context(), caller, roundID); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFinalizeRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.FinalizeRoundHandler(r.Context(), caller, roundID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoundResults(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.RoundResultsHandler(r.Context(), roundID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	var req governancehttp.AddCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.AddCandidateHandler(r.Context(), caller, roundID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.CandidateListHandler(r.Context(), roundID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	candidateID, ok := parseIDParam(w, r, "candidate_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.CandidateHandler(r.Context(), roundID, candidateID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTally(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	candidateID, ok := parseIDParam(w, r, "candidate_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.TallyHandler(r.Context(), roundID, candidateID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	var req governancehttp.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.VoteHandler(r.Context(), caller, roundID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.HasVotedHandler(r.Context(), r.PathValue("voter"), roundID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVotingPower(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.VotingPowerHandler(r.Context(), r.PathValue("voter"), roundID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	var req governancehttp.DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.DelegateHandler(r.Context(), caller, roundID, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeDelegation(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	if err := s.governance.Handler.RevokeDelegationHandler(r.Context(), caller, roundID); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDelegation(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	resp, found, err := s.governance.Handler.DelegationHandler(r.Context(), r.PathValue("delegator"), roundID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	if !found {
		writeGovernanceError(w, http.StatusNotFound, "delegation_not_found", "no delegation for this round")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegatePower(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseIDParam(w, r, "round_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.DelegatePowerHandler(r.Context(), r.PathValue("delegate"), roundID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CreateProposalHandler(r.Context(), caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseIDParam(w, r, "proposal_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ProposalHandler(r.Context(), proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var afterID uint64
	if raw := query.Get("after_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeGovernanceError(w, http.StatusBadRequest, "invalid_after_id", "after_id must be an unsigned integer")
			return
		}
		afterID = parsed
	}
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeGovernanceError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.governance.Handler.EventsHandler(r.Context(), afterID, limit)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governanceerrors.ErrInvalidInput):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, governanceerrors.ErrInvalidRound),
		errors.Is(err, governanceerrors.ErrInvalidQuorum),
		errors.Is(err, governanceerrors.ErrInvalidParticipation),
		errors.Is(err, governanceerrors.ErrInvalidHeight):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "invalid_parameters", err.Error())
	case errors.Is(err, governanceerrors.ErrUnauthorized):
		writeGovernanceError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, governanceerrors.ErrVoterNotEligible):
		writeGovernanceError(w, http.StatusForbidden, "voter_not_eligible", err.Error())
	case errors.Is(err, governanceerrors.ErrRoundNotFound),
		errors.Is(err, governanceerrors.ErrCandidateNotFound),
		errors.Is(err, governanceerrors.ErrProposalNotFound),
		errors.Is(err, governanceerrors.ErrNoActiveDelegation):
		writeGovernanceError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrRoundNotActive),
		errors.Is(err, governanceerrors.ErrAlreadyFinalized),
		errors.Is(err, governanceerrors.ErrAlreadyVoted),
		errors.Is(err, governanceerrors.ErrDelegationExists),
		errors.Is(err, governanceerrors.ErrSelfDelegation),
		errors.Is(err, governanceerrors.ErrConflict):
		writeGovernanceError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, governanceerrors.ErrMinParticipationNotMet):
		writeGovernanceError(w, http.StatusPreconditionFailed, "min_participation_not_met", err.Error())
	case errors.Is(err, governanceerrors.ErrPaused):
		writeGovernanceError(w, http.StatusLocked, "engine_paused", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if caller == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	value, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_"+name, name+" must be an unsigned integer")
		return 0, false
	}
	return value, true
}
