package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	votingengine "agora/contexts/governance/voting-engine"
	governancehttp "agora/contexts/governance/voting-engine/transport/http"
)

func newTestServer() http.Handler {
	module := votingengine.NewInMemoryModule("owner", nil)
	return New(module, nil, ":0").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set("X-User-Id", caller)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestGovernanceHTTPFlow(t *testing.T) {
	handler := newTestServer()

	rec := doJSON(t, handler, http.MethodGet, "/api/governance/v1/state", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state: status %d", rec.Code)
	}
	state := decodeBody[governancehttp.StateResponse](t, rec)
	if state.Owner != "owner" || state.CurrentHeight != 0 {
		t.Fatalf("unexpected state %+v", state)
	}

	// Mutations require the caller header.
	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/roles", "", governancehttp.SetRoleRequest{Target: "gov-admin", Admin: true})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing caller: status %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/roles", "owner", governancehttp.SetRoleRequest{Target: "gov-admin", Admin: true})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set role: status %d body %s", rec.Code, rec.Body.String())
	}

	for voter, weight := range map[string]uint64{"alice": 1, "bob": 2} {
		rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/voters", "gov-admin", governancehttp.RegisterVoterRequest{Voter: voter, Weight: weight})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("register %s: status %d body %s", voter, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/rounds", "owner", governancehttp.CreateRoundRequest{
		Type:        "delegated",
		Name:        "budget allocation",
		StartHeight: 10,
		EndHeight:   20,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create round: status %d body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[governancehttp.CreateRoundResponse](t, rec)
	if created.RoundID != 1 {
		t.Fatalf("expected round id 1, got %d", created.RoundID)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/rounds/1/candidates", "owner", governancehttp.AddCandidateRequest{Name: "proposal A"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add candidate: status %d body %s", rec.Code, rec.Body.String())
	}
	candidate := decodeBody[governancehttp.AddCandidateResponse](t, rec)
	if candidate.CandidateID != 1 {
		t.Fatalf("expected candidate id 1, got %d", candidate.CandidateID)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/rounds/1/activate", "owner", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("activate: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/height", "gov-admin", governancehttp.AdvanceHeightRequest{Height: 10})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("advance height: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/rounds/1/delegation", "bob", governancehttp.DelegateRequest{Delegate: "alice"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delegate: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/rounds/1/votes", "alice", governancehttp.VoteRequest{CandidateID: 1, UseDelegation: true})
	if rec.Code != http.StatusCreated {
		t.Fatalf("vote: status %d body %s", rec.Code, rec.Body.String())
	}
	vote := decodeBody[governancehttp.VoteResponse](t, rec)
	if vote.VoteWeight != 3 || vote.DelegatedShare != 2 || !vote.IsDelegated {
		t.Fatalf("unexpected vote response %+v", vote)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/rounds/1/votes", "alice", governancehttp.VoteRequest{CandidateID: 1})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate vote: status %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/governance/v1/rounds/1/results", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("results: status %d", rec.Code)
	}
	results := decodeBody[governancehttp.RoundResultsResponse](t, rec)
	if results.LeadingCandidateID == nil || *results.LeadingCandidateID != 1 {
		t.Fatalf("unexpected leading candidate %+v", results.LeadingCandidateID)
	}
	if len(results.Tallies) != 1 || results.Tallies[0].WeightedVotes != 3 {
		t.Fatalf("unexpected tallies %+v", results.Tallies)
	}
}

func TestGovernanceHTTPErrorMapping(t *testing.T) {
	handler := newTestServer()

	rec := doJSON(t, handler, http.MethodGet, "/api/governance/v1/voters/mallory", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown voter: status %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/governance/v1/rounds/99", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown round: status %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/governance/v1/rounds/abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad round id: status %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/rounds", "nobody", governancehttp.CreateRoundRequest{
		StartHeight: 10,
		EndHeight:   20,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unauthorized create: status %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/rounds", "owner", governancehttp.CreateRoundRequest{
		StartHeight: 20,
		EndHeight:   10,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid window: status %d", rec.Code)
	}

	// Height regression after an admin moves the counter forward.
	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/roles", "owner", governancehttp.SetRoleRequest{Target: "gov-admin", Admin: true})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set role: status %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/height", "gov-admin", governancehttp.AdvanceHeightRequest{Height: 10})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("advance height: status %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/height", "gov-admin", governancehttp.AdvanceHeightRequest{Height: 5})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("height regression: status %d", rec.Code)
	}

	// Pausing locks out round creation.
	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/pause", "gov-admin", governancehttp.PauseRequest{Paused: true})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("pause: status %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/governance/v1/rounds", "owner", governancehttp.CreateRoundRequest{
		StartHeight: 10,
		EndHeight:   20,
	})
	if rec.Code != http.StatusLocked {
		t.Fatalf("paused create: status %d", rec.Code)
	}
}
