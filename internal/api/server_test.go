package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurslab/reviewd/internal/review"
	"github.com/kurslab/reviewd/internal/types"
)

// fakeService scripts orchestrator behavior per test
type fakeService struct {
	trigger func(ctx context.Context, submissionID string, force bool) (*types.Review, bool, error)
	status  func(ctx context.Context, submissionID string) (*types.Review, error)
}

func (f *fakeService) Trigger(ctx context.Context, submissionID string, force bool) (*types.Review, bool, error) {
	return f.trigger(ctx, submissionID, force)
}

func (f *fakeService) Status(ctx context.Context, submissionID string) (*types.Review, error) {
	return f.status(ctx, submissionID)
}

func processingReview(submissionID string) *types.Review {
	return &types.Review{
		ID:           "run-1",
		SubmissionID: submissionID,
		Status:       types.StatusProcessing,
		StartedAt:    time.Now().UTC(),
	}
}

func newTestServer(t *testing.T, svc ReviewService, cfg *Config) http.Handler {
	t.Helper()

	s, err := NewServer(svc, cfg)
	require.NoError(t, err)
	return s.Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTriggerStartsReview(t *testing.T) {
	var gotForce bool
	svc := &fakeService{
		trigger: func(ctx context.Context, id string, force bool) (*types.Review, bool, error) {
			gotForce = force
			return processingReview(id), true, nil
		},
	}
	h := newTestServer(t, svc, nil)

	rec := doRequest(t, h, "POST", "/api/submissions/sub-1/review", TriggerRequest{Force: true})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, gotForce)

	var resp TriggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "started", resp.Status)
	assert.Equal(t, "sub-1", resp.SubmissionID)
	require.NotNil(t, resp.Review)
	assert.Equal(t, types.StatusProcessing, resp.Review.Status)
}

func TestTriggerEmptyBodyIsNonForced(t *testing.T) {
	var gotForce bool
	svc := &fakeService{
		trigger: func(ctx context.Context, id string, force bool) (*types.Review, bool, error) {
			gotForce = force
			return processingReview(id), true, nil
		},
	}
	h := newTestServer(t, svc, nil)

	req := httptest.NewRequest("POST", "/api/submissions/sub-1/review", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, gotForce)
}

func TestTriggerNoOpReportsUnchanged(t *testing.T) {
	svc := &fakeService{
		trigger: func(ctx context.Context, id string, force bool) (*types.Review, bool, error) {
			return processingReview(id), false, nil
		},
	}
	h := newTestServer(t, svc, nil)

	rec := doRequest(t, h, "POST", "/api/submissions/sub-1/review", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp TriggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unchanged", resp.Status)
}

func TestTriggerUnknownSubmission(t *testing.T) {
	svc := &fakeService{
		trigger: func(ctx context.Context, id string, force bool) (*types.Review, bool, error) {
			return nil, false, fmt.Errorf("%w: %s", review.ErrSubmissionNotFound, id)
		},
	}
	h := newTestServer(t, svc, nil)

	rec := doRequest(t, h, "POST", "/api/submissions/nope/review", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerMalformedBody(t *testing.T) {
	svc := &fakeService{
		trigger: func(ctx context.Context, id string, force bool) (*types.Review, bool, error) {
			t.Fatal("trigger must not be called on a malformed body")
			return nil, false, nil
		},
	}
	h := newTestServer(t, svc, nil)

	req := httptest.NewRequest("POST", "/api/submissions/sub-1/review", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusReturnsNullBeforeTrigger(t *testing.T) {
	svc := &fakeService{
		status: func(ctx context.Context, id string) (*types.Review, error) {
			return nil, nil
		},
	}
	h := newTestServer(t, svc, nil)

	rec := doRequest(t, h, "GET", "/api/submissions/sub-1/review", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"review": null}`, rec.Body.String())
}

func TestStatusReturnsReview(t *testing.T) {
	svc := &fakeService{
		status: func(ctx context.Context, id string) (*types.Review, error) {
			r := processingReview(id)
			r.Status = types.StatusCompleted
			r.Analysis = &types.Analysis{ShortVerdict: "Хорошая работа"}
			return r, nil
		},
	}
	h := newTestServer(t, svc, nil)

	rec := doRequest(t, h, "GET", "/api/submissions/sub-1/review", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Review)
	assert.Equal(t, types.StatusCompleted, resp.Review.Status)
	assert.Equal(t, "Хорошая работа", resp.Review.Analysis.ShortVerdict)
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &fakeService{}, nil)

	rec := doRequest(t, h, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestTokenAuthorizer(t *testing.T) {
	svc := &fakeService{
		status: func(ctx context.Context, id string) (*types.Review, error) {
			return nil, nil
		},
	}
	cfg := DefaultConfig()
	cfg.Authorizer = TokenAuthorizer{Token: "secret"}
	h := newTestServer(t, svc, cfg)

	rec := doRequest(t, h, "GET", "/api/submissions/sub-1/review", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("GET", "/api/submissions/sub-1/review", nil)
	req.Header.Set("Authorization", "Bearer secret")
	authed := httptest.NewRecorder()
	h.ServeHTTP(authed, req)
	assert.Equal(t, http.StatusOK, authed.Code)

	// Health stays open for load balancer probes
	probe := doRequest(t, h, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, probe.Code)
}

func TestTriggerRateLimit(t *testing.T) {
	svc := &fakeService{
		trigger: func(ctx context.Context, id string, force bool) (*types.Review, bool, error) {
			return processingReview(id), true, nil
		},
		status: func(ctx context.Context, id string) (*types.Review, error) {
			return nil, nil
		},
	}
	cfg := DefaultConfig()
	cfg.TriggerPerMinute = 1
	cfg.TriggerBurst = 2
	h := newTestServer(t, svc, cfg)

	for i := 0; i < 2; i++ {
		rec := doRequest(t, h, "POST", "/api/submissions/sub-1/review", nil)
		assert.Equal(t, http.StatusAccepted, rec.Code, "request %d within burst", i)
	}

	rec := doRequest(t, h, "POST", "/api/submissions/sub-1/review", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Status polling is not subject to the trigger limiter
	poll := doRequest(t, h, "GET", "/api/submissions/sub-1/review", nil)
	assert.Equal(t, http.StatusOK, poll.Code)
}
