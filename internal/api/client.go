package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/leszmonitor/dashboard/internal/domain"
)

// TokenSource supplies the bearer token attached to authenticated requests.
type TokenSource interface {
	Get() (token string, ok bool, err error)
}

// Client handles HTTP communication with the Leszmonitor backend. All
// authenticated methods read the token source first and fail fast with
// domain.ErrUnauthenticated when no token is stored, without issuing a
// network call. Timestamps arrive as RFC 3339 strings on the wire and are
// decoded into time.Time by the typed response structs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        *zap.SugaredLogger
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        log,
	}
}

type loginResponse struct {
	JWT string `json:"jwt"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session token. It is the only call
// besides Register that goes out without a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var result loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", credentials{username, password}, &result, false)
	if err != nil {
		return "", err
	}
	if result.JWT == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return result.JWT, nil
}

// Register creates an account. The caller is expected to log in afterwards.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/register", credentials{username, password}, nil, false)
}

// GetUser fetches a user by username.
func (c *Client) GetUser(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(username), nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers fetches all users.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users, true); err != nil {
		return nil, err
	}
	return users, nil
}

// GetTeam fetches a team by its display id.
func (c *Client) GetTeam(ctx context.Context, displayID string) (*domain.Team, error) {
	var team domain.Team
	if err := c.do(ctx, http.MethodGet, "/teams/"+url.PathEscape(displayID), nil, &team, true); err != nil {
		return nil, err
	}
	return &team, nil
}

// ListTeams fetches every team the caller belongs to.
func (c *Client) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var teams []domain.Team
	if err := c.do(ctx, http.MethodGet, "/teams", nil, &teams, true); err != nil {
		return nil, err
	}
	return teams, nil
}

// ListGroups fetches the groups of a team.
func (c *Client) ListGroups(ctx context.Context, teamID string) ([]domain.Group, error) {
	var groups []domain.Group
	if err := c.do(ctx, http.MethodGet, "/teams/"+url.PathEscape(teamID)+"/groups", nil, &groups, true); err != nil {
		return nil, err
	}
	return groups, nil
}

// AddGroup creates a group in a team.
func (c *Client) AddGroup(ctx context.Context, teamID string, input domain.GroupInput) (*domain.Group, error) {
	var group domain.Group
	if err := c.do(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/groups", input, &group, true); err != nil {
		return nil, err
	}
	return &group, nil
}

// DeleteGroup removes a group from a team.
func (c *Client) DeleteGroup(ctx context.Context, teamID, groupID string) error {
	path := "/teams/" + url.PathEscape(teamID) + "/groups/" + url.PathEscape(groupID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, true)
}

// MemberInput is the payload for adding a member to a team.
type MemberInput struct {
	Username string          `json:"username"`
	Role     domain.TeamRole `json:"role"`
}

// AddMember adds a user to a team with the given role.
func (c *Client) AddMember(ctx context.Context, teamID string, input MemberInput) error {
	return c.do(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/members", input, nil, true)
}

type removeMemberInput struct {
	Username string `json:"username"`
}

// RemoveMember removes a user from a team.
func (c *Client) RemoveMember(ctx context.Context, teamID, username string) error {
	path := "/teams/" + url.PathEscape(teamID) + "/members"
	return c.do(ctx, http.MethodDelete, path, removeMemberInput{username}, nil, true)
}

// do issues one request. A non-2xx status becomes a *RequestError and the
// body is discarded; on success the body is decoded into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	fullURL := c.baseURL + path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		tok, ok, err := c.tokens.Get()
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if !ok {
			return domain.ErrUnauthenticated
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debugw("request failed", "method", method, "url", fullURL, "status", resp.StatusCode)
		return &RequestError{Status: resp.StatusCode, URL: fullURL}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", fullURL, err)
	}
	return nil
}
