package ops_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkallio/inviteboard/internal/leaderboard/app"
	"github.com/mkallio/inviteboard/internal/leaderboard/domain"
	"github.com/mkallio/inviteboard/internal/leaderboard/storage"
	"github.com/mkallio/inviteboard/internal/ops"
)

type fakeService struct {
	snapshot app.Snapshot
	stats    app.UserStats
	statsErr error
}

func (f *fakeService) Snapshot() app.Snapshot {
	return f.snapshot
}

func (f *fakeService) Stats(userID int64) (app.UserStats, error) {
	if f.statsErr != nil {
		return app.UserStats{}, f.statsErr
	}
	return f.stats, nil
}

type fakeJournal struct {
	attempts []storage.PublishAttempt
	lastReq  int
}

func (f *fakeJournal) RecordPublish(ctx context.Context, attempt storage.PublishAttempt) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeJournal) ListPublishes(ctx context.Context, limit int) ([]storage.PublishAttempt, error) {
	f.lastReq = limit
	if limit > len(f.attempts) {
		limit = len(f.attempts)
	}
	return f.attempts[:limit], nil
}

func doRequest(t *testing.T, server *ops.Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	server := ops.New(&fakeService{}, nil, ops.Options{})
	recorder := doRequest(t, server, http.MethodGet, "/healthz")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var body map[string]string
	decodeBody(t, recorder, &body)
	if body["status"] != "ok" {
		t.Errorf("status body = %q, want ok", body["status"])
	}
}

func TestRankingEndpoint(t *testing.T) {
	t.Parallel()

	service := &fakeService{
		snapshot: app.Snapshot{
			Entries: []domain.RankedEntry{
				{Rank: 1, UserID: 2, Username: "bob", Invites: 9},
				{Rank: 2, UserID: 1, Username: "alice", Invites: 4},
			},
			Participants: 2,
			TotalInvites: 13,
			LastUpdated:  time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC),
		},
	}
	server := ops.New(service, nil, ops.Options{})
	recorder := doRequest(t, server, http.MethodGet, "/api/v1/ranking")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	var body struct {
		Entries []struct {
			Rank     int    `json:"rank"`
			UserID   int64  `json:"user_id"`
			Username string `json:"username"`
			Invites  int    `json:"invites"`
		} `json:"entries"`
		Participants int    `json:"participants"`
		TotalInvites int    `json:"total_invites"`
		LastUpdated  string `json:"last_updated"`
	}
	decodeBody(t, recorder, &body)

	if len(body.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(body.Entries))
	}
	if body.Entries[0].Username != "bob" || body.Entries[0].Rank != 1 {
		t.Errorf("first entry = %+v", body.Entries[0])
	}
	if body.Participants != 2 || body.TotalInvites != 13 {
		t.Errorf("totals = %d participants, %d invites", body.Participants, body.TotalInvites)
	}
	if body.LastUpdated != "2025-06-10T09:30:00Z" {
		t.Errorf("last_updated = %q", body.LastUpdated)
	}
}

func TestRankingEmptyBoard(t *testing.T) {
	t.Parallel()

	server := ops.New(&fakeService{}, nil, ops.Options{})
	recorder := doRequest(t, server, http.MethodGet, "/api/v1/ranking")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var body map[string]json.RawMessage
	decodeBody(t, recorder, &body)
	if string(body["entries"]) != "[]" {
		t.Errorf("entries = %s, want []", body["entries"])
	}
	if _, ok := body["last_updated"]; ok {
		t.Error("last_updated present for an empty board")
	}
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()

	service := &fakeService{
		stats: app.UserStats{
			Record: domain.InviteRecord{
				UserID:    42,
				Username:  "alice",
				Invites:   7,
				CreatedAt: time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC),
				UpdatedAt: time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC),
			},
			Rank: 3,
		},
	}
	server := ops.New(service, nil, ops.Options{})
	recorder := doRequest(t, server, http.MethodGet, "/api/v1/stats/42")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var body struct {
		UserID    int64  `json:"user_id"`
		Username  string `json:"username"`
		Invites   int    `json:"invites"`
		Rank      int    `json:"rank"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
	}
	decodeBody(t, recorder, &body)
	if body.UserID != 42 || body.Username != "alice" || body.Invites != 7 || body.Rank != 3 {
		t.Errorf("body = %+v", body)
	}
	if body.UpdatedAt != "2025-06-10T09:30:00Z" {
		t.Errorf("updated_at = %q", body.UpdatedAt)
	}
}

func TestStatsUnknownUserReturns404(t *testing.T) {
	t.Parallel()

	service := &fakeService{statsErr: domain.ErrRecordNotFound}
	server := ops.New(service, nil, ops.Options{})
	recorder := doRequest(t, server, http.MethodGet, "/api/v1/stats/99")

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
	var body map[string]string
	decodeBody(t, recorder, &body)
	if body["error"] == "" {
		t.Error("error body is empty")
	}
	if body["code"] != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", body["code"])
	}
	if body["domain"] == "" {
		t.Error("domain is empty")
	}
}

func TestStatsRejectsBadUserID(t *testing.T) {
	t.Parallel()

	server := ops.New(&fakeService{}, nil, ops.Options{})

	for _, target := range []string{"/api/v1/stats/abc", "/api/v1/stats/0", "/api/v1/stats/-4"} {
		recorder := doRequest(t, server, http.MethodGet, target)
		if recorder.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", target, recorder.Code)
		}
	}
}

func TestPublishesEndpoint(t *testing.T) {
	t.Parallel()

	journal := &fakeJournal{
		attempts: []storage.PublishAttempt{
			{
				ID:            "a1",
				Reason:        storage.PublishReasonSubmission,
				Outcome:       "success",
				AttemptCount:  1,
				CommitMessage: "Update leaderboard: @alice submitted 5 invites",
				CreatedAt:     time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC),
			},
			{
				ID:           "a2",
				Reason:       storage.PublishReasonRepublish,
				Outcome:      "failure",
				AttemptCount: 4,
				LastError:    "remote unavailable",
				CreatedAt:    time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC),
			},
		},
	}
	server := ops.New(&fakeService{}, journal, ops.Options{})
	recorder := doRequest(t, server, http.MethodGet, "/api/v1/publishes?limit=1")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if journal.lastReq != 1 {
		t.Errorf("journal limit = %d, want 1", journal.lastReq)
	}
	var body struct {
		Publishes []struct {
			ID      string `json:"id"`
			Reason  string `json:"reason"`
			Outcome string `json:"outcome"`
		} `json:"publishes"`
	}
	decodeBody(t, recorder, &body)
	if len(body.Publishes) != 1 {
		t.Fatalf("publishes = %d, want 1", len(body.Publishes))
	}
	if body.Publishes[0].ID != "a1" || body.Publishes[0].Outcome != "success" {
		t.Errorf("publish entry = %+v", body.Publishes[0])
	}
}

func TestPublishesRejectsBadLimit(t *testing.T) {
	t.Parallel()

	server := ops.New(&fakeService{}, &fakeJournal{}, ops.Options{})

	for _, target := range []string{"/api/v1/publishes?limit=abc", "/api/v1/publishes?limit=0", "/api/v1/publishes?limit=10000"} {
		recorder := doRequest(t, server, http.MethodGet, target)
		if recorder.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", target, recorder.Code)
		}
	}
}

func TestPublishesWithoutJournal(t *testing.T) {
	t.Parallel()

	server := ops.New(&fakeService{}, nil, ops.Options{})
	recorder := doRequest(t, server, http.MethodGet, "/api/v1/publishes")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var body map[string]json.RawMessage
	decodeBody(t, recorder, &body)
	if string(body["publishes"]) != "[]" {
		t.Errorf("publishes = %s, want []", body["publishes"])
	}
}

func TestMetricsRequiresConfiguredAuth(t *testing.T) {
	t.Parallel()

	server := ops.New(&fakeService{}, nil, ops.Options{
		MetricsUser: "metrics",
		MetricsPass: "sekret",
	})

	recorder := doRequest(t, server, http.MethodGet, "/metrics")
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status without auth = %d, want 401", recorder.Code)
	}
	if got := recorder.Header().Get("WWW-Authenticate"); got == "" {
		t.Error("missing WWW-Authenticate challenge")
	}

	wrong := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	wrong.SetBasicAuth("metrics", "nope")
	recorder = httptest.NewRecorder()
	server.ServeHTTP(recorder, wrong)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong password = %d, want 401", recorder.Code)
	}

	ok := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	ok.SetBasicAuth("metrics", "sekret")
	recorder = httptest.NewRecorder()
	server.ServeHTTP(recorder, ok)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status with credentials = %d, want 200", recorder.Code)
	}
}

func TestMetricsOpenWithoutCredentials(t *testing.T) {
	t.Parallel()

	server := ops.New(&fakeService{}, nil, ops.Options{})
	recorder := doRequest(t, server, http.MethodGet, "/metrics")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
}

func TestRankingRejectsWrites(t *testing.T) {
	t.Parallel()

	server := ops.New(&fakeService{}, nil, ops.Options{})
	recorder := doRequest(t, server, http.MethodPost, "/api/v1/ranking")
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", recorder.Code)
	}
}
