package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-scheduling-service/internal/adapters/repositories"
	"fleet-scheduling-service/internal/adapters/solver"
	"fleet-scheduling-service/internal/api/dto"
	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/platform/db"
	"fleet-scheduling-service/internal/platform/obs"
	"fleet-scheduling-service/internal/ports"
	"fleet-scheduling-service/internal/services"
)

// o1 and o2 sit roughly 30 and 50 km north of the depot; o4 has no point.
const seedJSON = `[
  {"order_id": "o1", "address": "1 Rue A", "lon": 2.3522, "lat": 49.1264, "size": 100, "zone": "north"},
  {"order_id": "o2", "address": "2 Rue B", "lon": 2.3522, "lat": 49.3062, "size": 100, "zone": "north"},
  {"order_id": "o3", "address": "3 Rue C", "lon": 2.3522, "lat": 48.5000, "size": 50, "zone": "south"},
  {"order_id": "o4", "address": "Nowhere", "size": 10, "zone": "north"}
]`

var depot = domain.Coordinates{Lon: 2.3522, Lat: 48.8566}

func newTestRouter(t *testing.T, s ports.Solver) (http.Handler, *repositories.SQLOrderRepository) {
	t.Helper()
	conn, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	require.NoError(t, repositories.InitSchema(ctx, conn, repositories.SQLite))

	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))
	require.NoError(t, repositories.SeedFromJSON(ctx, conn, repositories.SQLite, path))

	repo := repositories.NewSQLOrderRepository(conn, repositories.SQLite, time.UTC)

	end := depot
	planner := &services.Planner{
		Repo:     repo,
		Solver:   s,
		Policy:   domain.DefaultPolicy(),
		Fleet:    []domain.Vehicle{{VehicleID: "van-1", Capacity: 1000, Start: depot, End: &end}},
		Location: time.UTC,
	}

	return NewRouter(repo, planner), repo
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	obs.RegisterDefault()
	h, _ := newTestRouter(t, nil)

	do(t, h, http.MethodGet, "/health", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/plans", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListOrders(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/orders?zone=north", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[dto.ListOrdersResponse](t, rec)
	require.Len(t, res.Orders, 3)
	assert.Equal(t, "o1", res.Orders[0].OrderID)
	assert.Equal(t, "pending", res.Orders[0].Status)
	assert.Nil(t, res.Orders[2].Location)

	rec = do(t, h, http.MethodGet, "/orders?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanPersistsAssignments(t *testing.T) {
	h, repo := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/plans", `{"zone":"north","days":["2026-03-02"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[dto.PlanResponse](t, rec)
	assert.Equal(t, services.SourceHeuristic, res.Source)
	assert.True(t, res.Persisted)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"o4"}, res.Unroutable)
	require.Len(t, res.Tours, 1)
	assert.Equal(t, "2026-03-02", res.Tours[0].Day)
	require.Len(t, res.Tours[0].Stops, 2)
	assert.Equal(t, "o1", res.Tours[0].Stops[0].OrderID)
	assert.Equal(t, "o2", res.Tours[0].Stops[1].OrderID)

	scheduled, err := repo.List(context.Background(), ports.OrderFilter{Statuses: []domain.OrderStatus{domain.StatusScheduled}})
	require.NoError(t, err)
	require.Len(t, scheduled, 2)
	assert.Equal(t, "van-1", scheduled[0].VehicleID)
	require.NotNil(t, scheduled[0].ArrivalAt)
}

func TestPlanDryRunLeavesOrdersPending(t *testing.T) {
	h, repo := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/plans", `{"zone":"north","days":["2026-03-02"],"dry_run":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[dto.PlanResponse](t, rec).Persisted)

	pending, err := repo.List(context.Background(), ports.OrderFilter{Statuses: []domain.OrderStatus{domain.StatusPending}})
	require.NoError(t, err)
	assert.Len(t, pending, 4)
}

func TestPlanValidation(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	cases := map[string]string{
		"no days":       `{"zone":"north"}`,
		"bad date":      `{"days":["02/03/2026"]}`,
		"unknown field": `{"days":["2026-03-02"],"trucks":3}`,
		"two objects":   `{"days":["2026-03-02"]}{}`,
		"not json":      `days`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/plans", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPlanUnknownVehicleIsNotFound(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/plans", `{"days":["2026-03-02"],"vehicle_ids":["van-9"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanSolverRejectionIsBadGateway(t *testing.T) {
	fake := solver.NewFake(solver.Step{Err: domain.ErrTooManyVehicles})
	h, _ := newTestRouter(t, fake)

	rec := do(t, h, http.MethodPost, "/plans", `{"zone":"north","days":["2026-03-02"],"use_solver":true}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	assert.Len(t, fake.Requests(), 1)
}

func TestPlanSolverUnavailableDegrades(t *testing.T) {
	fake := solver.NewFake(solver.Step{Err: domain.ErrSolverUnavailable})
	h, _ := newTestRouter(t, fake)

	rec := do(t, h, http.MethodPost, "/plans", `{"zone":"north","days":["2026-03-02"],"use_solver":true,"dry_run":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[dto.PlanResponse](t, rec)
	assert.True(t, res.Degraded)
	assert.Equal(t, services.SourceHeuristic, res.Source)
	assert.NotEmpty(t, res.DegradedReason)
}

func TestSimulate(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/tours/simulate",
		`{"day":"2026-03-02","vehicle_id":"van-1","order_ids":["o2","o1"],"preserve_order":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[dto.TourResponse](t, rec)
	require.Len(t, res.Stops, 2)
	assert.Equal(t, "o2", res.Stops[0].OrderID)
	assert.Equal(t, "o1", res.Stops[1].OrderID)
	assert.True(t, res.ReturnsToDepot)
	assert.Equal(t, 200, res.Load)
}

func TestSimulateErrors(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing vehicle", `{"order_ids":["o1"]}`, http.StatusBadRequest},
		{"bad start hour", `{"vehicle_id":"van-1","start_hour":25}`, http.StatusBadRequest},
		{"unknown vehicle", `{"vehicle_id":"van-9","order_ids":["o1"]}`, http.StatusNotFound},
		{"unknown order", `{"vehicle_id":"van-1","order_ids":["o9"]}`, http.StatusNotFound},
		{"unroutable order", `{"vehicle_id":"van-1","order_ids":["o4"]}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/tours/simulate", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCutoff(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/tours/cutoff",
		`{"day":"2026-03-02","vehicle_id":"van-1","order_ids":["o1","o2"],"deadline_hour":20}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[dto.CutoffResponse](t, rec)
	assert.Equal(t, []string{"o1", "o2"}, res.Kept)
	assert.Empty(t, res.Deferred)
	assert.False(t, res.NoStopPossible)
	assert.Equal(t, "20:00", res.Deadline)

	// First stop arrives 08:30 and its service ends after 09:00.
	rec = do(t, h, http.MethodPost, "/tours/cutoff",
		`{"day":"2026-03-02","vehicle_id":"van-1","order_ids":["o1","o2"],"deadline_hour":9}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = decode[dto.CutoffResponse](t, rec)
	assert.True(t, res.NoStopPossible)
	assert.Empty(t, res.Kept)
	assert.Equal(t, []string{"o1", "o2"}, res.Deferred)

	rec = do(t, h, http.MethodPost, "/tours/cutoff", `{"vehicle_id":"van-1","deadline_hour":30}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresets(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/tours/presets",
		`{"day":"2026-03-02","vehicle_id":"van-1","order_ids":["o1","o2"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[dto.PresetsResponse](t, rec)
	require.Len(t, res.Presets, 3)
	names := make([]string, 0, 3)
	for _, p := range res.Presets {
		require.NotNil(t, p.Preset)
		names = append(names, p.Preset.Name)
	}
	assert.Equal(t, []string{"maximum", "comfortable", "morning-only"}, names)
}

func TestSuggestSlots(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	// 2026-03-02 is a Monday; the week has five eligible days.
	rec := do(t, h, http.MethodGet, "/orders/o1/slots?vehicle=van-1&from=2026-03-02&horizon=7", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		OrderID     string `json:"order_id"`
		Suggestions []struct {
			Date  time.Time `json:"date"`
			Class string    `json:"class"`
			Mode  string    `json:"mode"`
		} `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "o1", res.OrderID)
	require.Len(t, res.Suggestions, 5)
	for _, s := range res.Suggestions {
		assert.Equal(t, "GOOD", s.Class)
		assert.Equal(t, "solo", s.Mode)
		assert.NotEqual(t, time.Saturday, s.Date.Weekday())
	}
}

func TestSuggestSlotsErrors(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	cases := []struct {
		target string
		want   int
	}{
		{"/orders/o1/slots", http.StatusBadRequest},
		{"/orders/o1/slots?vehicle=van-1&horizon=0", http.StatusBadRequest},
		{"/orders/o1/slots?vehicle=van-1&from=tomorrow", http.StatusBadRequest},
		{"/orders/o9/slots?vehicle=van-1", http.StatusNotFound},
		{"/orders/o4/slots?vehicle=van-1", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(strings.TrimPrefix(tc.target, "/orders/"), func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tc.target, "")
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}
