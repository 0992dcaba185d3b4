package solver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-scheduling-service/internal/adapters/ors"
	"fleet-scheduling-service/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := ors.NewClient(srv.URL, "test-key", ors.WithBackoff(3, time.Millisecond))
	return NewClient(c, "")
}

func sampleRequest() domain.SolverRequest {
	return domain.SolverRequest{
		Jobs: []domain.SolverJob{{ID: 1, Location: []float64{2.35, 48.85}, Delivery: []int{3}, Service: 2700}},
		Vehicles: []domain.SolverVehicle{{
			ID: 1, Start: []float64{2.30, 48.80}, Capacity: []int{10}, TimeWindow: []int{28800, 72000}, Skills: []int{1},
		}},
	}
}

func TestSolvePostsRequestAndDecodesRoutes(t *testing.T) {
	var got domain.SolverRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/optimization", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(domain.SolverResponse{
			Routes: []domain.SolverRoute{{
				Vehicle: 1,
				Steps: []domain.SolverStep{
					{Type: "start", Arrival: 28800},
					{Type: "job", ID: 1, Arrival: 29400, Duration: 600, Distance: 8000, Service: 2700},
				},
			}},
		})
	})

	resp, err := c.Solve(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, sampleRequest(), got)
	require.Len(t, resp.Routes, 1)
	assert.Equal(t, 29400, resp.Routes[0].Steps[1].Arrival)
	assert.Empty(t, resp.Unassigned)
}

func TestSolveMapsTooManyVehicles(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Too many vehicles in request (max 3)"}`))
	})

	_, err := c.Solve(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTooManyVehicles)
	assert.ErrorIs(t, err, domain.ErrSolverRejected)
	assert.EqualValues(t, 1, calls.Load(), "rejections are not retried")
}

func TestSolveMapsOtherRejections(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid job location"}`))
	})

	_, err := c.Solve(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, domain.ErrSolverRejected)
	assert.NotErrorIs(t, err, domain.ErrTooManyVehicles)
}

func TestSolveDoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Solve(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, domain.ErrSolverUnavailable)
	assert.EqualValues(t, 1, calls.Load(), "server errors surface on the first attempt")
}

func TestSolveWaitsOutRateLimiting(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.SolverResponse{})
	})

	_, err := c.Solve(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestSolveUnavailableAfterRateLimitBudget(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Solve(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, domain.ErrSolverUnavailable)
	assert.EqualValues(t, 3, calls.Load())
}

func TestSolveUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(ors.NewClient(url, "", ors.WithBackoff(2, time.Millisecond)), "")
	_, err := c.Solve(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, domain.ErrSolverUnavailable)
}

func TestSolveBodyErrorCodes(t *testing.T) {
	cases := []struct {
		code int
		msg  string
		want error
	}{
		{2, "Invalid shipment", domain.ErrSolverRejected},
		{2, "Number of vehicles exceeds the maximum", domain.ErrTooManyVehicles},
		{3, "Unfound route", domain.ErrSolverUnavailable},
		{1, "boom", domain.ErrSolverUnavailable},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(domain.SolverResponse{Code: tc.code, Error: tc.msg})
		})
		_, err := c.Solve(context.Background(), sampleRequest())
		assert.ErrorIs(t, err, tc.want, "code %d %q", tc.code, tc.msg)
	}
}

func TestFakeReplaysScript(t *testing.T) {
	f := NewFake(
		Step{Err: domain.ErrTooManyVehicles},
		Step{Response: domain.SolverResponse{Unassigned: []domain.SolverUnassigned{{ID: 1}}}},
	)

	_, err := f.Solve(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, domain.ErrTooManyVehicles)

	for i := 0; i < 2; i++ {
		resp, err := f.Solve(context.Background(), sampleRequest())
		require.NoError(t, err)
		assert.Len(t, resp.Unassigned, 1)
	}
	assert.Len(t, f.Requests(), 3)
}
