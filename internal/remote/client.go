package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	logger "github.com/Gopher0727/GuildWar/middleware/log"
)

const (
	defaultErrorMessage = "An error occurred"
	// maxResponseBytes bounds a response body; a full event of both days
	// stays far below it.
	maxResponseBytes = 8 << 20
)

var ErrResponseTooLarge = errors.New("response body too large")

// APIError is a non-2xx answer of the roster service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Service is the set of operations the roster engine consumes.
type Service interface {
	GetCurrentEvent(ctx context.Context, region string) (*Event, error)
	CreateWeeklyEvent(ctx context.Context) (*CreateEventResponse, error)
	CreateTeam(ctx context.Context, req CreateTeamRequest) (*Team, error)
	UpdateTeam(ctx context.Context, teamID int64, req UpdateTeamRequest) (*Team, error)
	DeleteTeam(ctx context.Context, teamID int64) error
	AssignUserToTeam(ctx context.Context, teamID, userID int64) error
	RemoveUserFromTeam(ctx context.Context, teamID, userID int64) error
	DeleteUser(ctx context.Context, userID int64) error
	Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error)
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx. The client forwards
// it on every request made with that context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token attached to ctx, if any.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks JSON over HTTP to the roster service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	maxBody    int64
}

// NewClient builds a client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 16
	t.IdleConnTimeout = 90 * time.Second

	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: t, Timeout: timeout},
		logger:     log,
		maxBody:    maxResponseBytes,
	}
}

func (c *Client) GetCurrentEvent(ctx context.Context, region string) (*Event, error) {
	var ev Event
	if err := c.do(ctx, http.MethodGet, "/events/current/"+region, nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) CreateWeeklyEvent(ctx context.Context) (*CreateEventResponse, error) {
	var resp CreateEventResponse
	if err := c.do(ctx, http.MethodPost, "/events/create-weekly", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateTeam(ctx context.Context, req CreateTeamRequest) (*Team, error) {
	var team Team
	if err := c.do(ctx, http.MethodPost, "/teams", req, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) UpdateTeam(ctx context.Context, teamID int64, req UpdateTeamRequest) (*Team, error) {
	var team Team
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/teams/%d", teamID), req, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) DeleteTeam(ctx context.Context, teamID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/teams/%d", teamID), nil, &messageResponse{})
}

func (c *Client) AssignUserToTeam(ctx context.Context, teamID, userID int64) error {
	body := map[string]int64{"userId": userID}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/teams/%d/members", teamID), body, &messageResponse{})
}

func (c *Client) RemoveUserFromTeam(ctx context.Context, teamID, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/teams/%d/members/%d", teamID, userID), nil, &messageResponse{})
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", userID), nil, &messageResponse{})
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	var resp SignupResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if traceID := logger.GetTraceID(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("roster service unreachable",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > c.maxBody {
		return fmt.Errorf("%s %s: %w", method, path, ErrResponseTooLarge)
	}

	c.logger.Debug("roster service call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := defaultErrorMessage
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
