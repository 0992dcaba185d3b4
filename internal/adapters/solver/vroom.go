package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fleet-scheduling-service/internal/adapters/ors"
	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/platform/obs"
)

// VROOM error codes carried in the response body.
const (
	codeOK       = 0
	codeInternal = 1
	codeInput    = 2
	codeRouting  = 3
)

// Client calls a VROOM-compatible optimization endpoint, either the ORS
// hosted one (/optimization) or a self-hosted vroom-express.
type Client struct {
	http     *ors.Client
	endpoint string
}

func NewClient(c *ors.Client, endpoint string) *Client {
	if endpoint == "" {
		endpoint = c.BaseURL() + "/optimization"
	}
	return &Client{http: c, endpoint: endpoint}
}

func (c *Client) Solve(ctx context.Context, req domain.SolverRequest) (_ domain.SolverResponse, err error) {
	defer obs.Time(ctx, "solver.Solve")(&err)

	body, err := json.Marshal(req)
	if err != nil {
		return domain.SolverResponse{}, fmt.Errorf("encode solver request: %w", err)
	}

	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		return c.http.NewRequest(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	})
	if err != nil {
		return domain.SolverResponse{}, classify(err)
	}
	defer resp.Body.Close()

	var decoded domain.SolverResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.SolverResponse{}, fmt.Errorf("decode solver response: %w: %w", domain.ErrSolverUnavailable, err)
	}

	if decoded.Code != codeOK {
		return domain.SolverResponse{}, codeError(decoded.Code, decoded.Error)
	}

	return decoded, nil
}

// classify maps transport failures onto the solver error kinds.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var se *ors.StatusError
	if errors.As(err, &se) {
		if tooManyVehicles(se.Body) {
			return fmt.Errorf("%w: %s", domain.ErrTooManyVehicles, se.Body)
		}
		if se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests {
			return fmt.Errorf("%w: %w", domain.ErrSolverRejected, err)
		}
	}

	return fmt.Errorf("%w: %w", domain.ErrSolverUnavailable, err)
}

func codeError(code int, msg string) error {
	switch {
	case tooManyVehicles(msg):
		return fmt.Errorf("%w: %s", domain.ErrTooManyVehicles, msg)
	case code == codeInput:
		return fmt.Errorf("%w: input error: %s", domain.ErrSolverRejected, msg)
	case code == codeRouting:
		return fmt.Errorf("%w: routing error: %s", domain.ErrSolverUnavailable, msg)
	case code == codeInternal:
		return fmt.Errorf("%w: internal error: %s", domain.ErrSolverUnavailable, msg)
	}
	return fmt.Errorf("%w: code %d: %s", domain.ErrSolverRejected, code, msg)
}

// tooManyVehicles recognises the refusal wording of ORS and vroom-express
// for requests above their vehicle limit.
func tooManyVehicles(msg string) bool {
	m := strings.ToLower(msg)
	if strings.Contains(m, "too many vehicles") {
		return true
	}
	if !strings.Contains(m, "vehicle") {
		return false
	}
	return strings.Contains(m, "maximum") || strings.Contains(m, "exceed") || strings.Contains(m, "limit")
}
