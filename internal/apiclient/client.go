// Package apiclient talks to the mission server over HTTP. It implements
// the collaborator interfaces of the client package.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dailymission/internal/models"
)

// StatusError is returned for unexpected HTTP responses
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client is an HTTP client for the mission API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	token string

	active singleflight.Group
}

// New creates a client for the server at baseURL
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// LoginURL is where a browser starts the Google sign-in flow
func (c *Client) LoginURL() string {
	return c.baseURL + "/auth/google/start"
}

// Session returns the server's view of the current token. Missing, invalid
// and expired tokens all yield nil, nil.
func (c *Client) Session(ctx context.Context) (*models.AuthSession, error) {
	token := c.Token()
	if token == "" {
		return nil, nil
	}

	var session models.AuthSession
	status, err := c.do(ctx, http.MethodGet, "/api/session", nil, &session, http.StatusUnauthorized)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, nil
	}
	session.Token = token
	return &session, nil
}

// SignOut revokes the session on the server and forgets the token
func (c *Client) SignOut(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, http.StatusUnauthorized)
	c.SetToken("")
	return err
}

// Profile returns the caller's profile, or nil when it has none yet. The
// server identifies the caller by token; authID is only used for logging.
func (c *Client) Profile(ctx context.Context, authID string) (*models.User, error) {
	var user models.User
	status, err := c.do(ctx, http.MethodGet, "/api/profile", nil, &user, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		c.logger.Debug("No profile yet", slog.String("auth_id", authID))
		return nil, nil
	}
	return &user, nil
}

// CreateProfile creates the caller's profile
func (c *Client) CreateProfile(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, http.MethodPost, "/api/profile", map[string]string{"name": name}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ActiveMission returns the caller's in-progress mission, or nil when none.
// Concurrent lookups share one request.
func (c *Client) ActiveMission(ctx context.Context, userID int64) (*models.Mission, error) {
	v, err, _ := c.active.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		var mission models.Mission
		status, err := c.do(ctx, http.MethodGet, "/api/missions/active", nil, &mission)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNoContent {
			return (*models.Mission)(nil), nil
		}
		return &mission, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.(*models.Mission)
	if shared == nil {
		return nil, nil
	}
	m := *shared
	return &m, nil
}

// CreateMission starts a mission
func (c *Client) CreateMission(ctx context.Context, userID int64, category models.Category, title string) (*models.Mission, error) {
	body := map[string]string{"category": string(category), "title": title}
	var mission models.Mission
	if _, err := c.do(ctx, http.MethodPost, "/api/missions", body, &mission); err != nil {
		return nil, err
	}
	return &mission, nil
}

// UpdateMissionStatus moves a mission to a terminal status
func (c *Client) UpdateMissionStatus(ctx context.Context, missionID int64, status models.MissionStatus) (*models.Mission, error) {
	var mission models.Mission
	path := "/api/missions/" + strconv.FormatInt(missionID, 10) + "/status"
	if _, err := c.do(ctx, http.MethodPost, path, map[string]string{"status": string(status)}, &mission); err != nil {
		return nil, err
	}
	return &mission, nil
}

// CompleteMission finishes a mission and returns the server's progress
func (c *Client) CompleteMission(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error) {
	var result models.CompletionResult
	path := "/api/missions/" + strconv.FormatInt(missionID, 10) + "/complete"
	if _, err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IncrementCategoryScore adds one to a category score
func (c *Client) IncrementCategoryScore(ctx context.Context, userID int64, category models.Category) error {
	_, err := c.do(ctx, http.MethodPost, "/api/scores/"+url.PathEscape(string(category))+"/increment", nil, nil)
	return err
}

// CategoryScores returns the caller's scores
func (c *Client) CategoryScores(ctx context.Context, userID int64) ([]models.CategoryScore, error) {
	var scores []models.CategoryScore
	if _, err := c.do(ctx, http.MethodGet, "/api/scores", nil, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// CompletedMissionCount returns how many missions the caller has completed
func (c *Client) CompletedMissionCount(ctx context.Context, userID int64) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/missions/completed/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Badges returns the badge catalog with the caller's unlocked ids
func (c *Client) Badges(ctx context.Context) (*models.BadgeList, error) {
	var list models.BadgeList
	if _, err := c.do(ctx, http.MethodGet, "/api/badges", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UnlockedBadgeIDs returns the caller's unlocked badge ids
func (c *Client) UnlockedBadgeIDs(ctx context.Context, userID int64) ([]string, error) {
	list, err := c.Badges(ctx)
	if err != nil {
		return nil, err
	}
	return list.Unlocked, nil
}

// UnlockBadge records a badge for the caller
func (c *Client) UnlockBadge(ctx context.Context, userID int64, badgeID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/badges/"+url.PathEscape(badgeID)+"/unlock", nil, nil)
	return err
}

// Rewards returns the reward catalog with unlock states
func (c *Client) Rewards(ctx context.Context) ([]models.RewardStatus, error) {
	var rewards []models.RewardStatus
	if _, err := c.do(ctx, http.MethodGet, "/api/rewards", nil, &rewards); err != nil {
		return nil, err
	}
	return rewards, nil
}

// do sends a JSON request and decodes a 2xx JSON response into out. 204 and
// any status listed in allowed are returned without decoding; every other
// non-2xx status becomes a StatusError.
func (c *Client) do(ctx context.Context, method, path string, in, out any, allowed ...int) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("API request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))

	for _, code := range allowed {
		if resp.StatusCode == code {
			return resp.StatusCode, nil
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, readStatusError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

func readStatusError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return se
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		se.Message = payload.Error
	} else {
		se.Message = strings.TrimSpace(string(data))
	}
	return se
}
