package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/score-tracker/internal/domain"
)

// Client is an HTTP client for the score API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a failed response from the API
type APIError struct {
	StatusCode int
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Detail, e.StatusCode)
}

// Do performs an HTTP request
func (c *Client) Do(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Detail == "" {
			apiErr.Detail = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// ShowScore fetches a single player's score
func (c *Client) ShowScore(playerName string) (*domain.PlayerScore, error) {
	var score domain.PlayerScore
	if err := c.Do(http.MethodGet, "/scores/show_score/"+url.PathEscape(playerName), nil, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

// Leaderboard fetches the top players
func (c *Client) Leaderboard() ([]domain.PlayerRecord, error) {
	var entries []domain.PlayerRecord
	if err := c.Do(http.MethodGet, "/scores/leaderboard", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Signup registers a player
func (c *Client) Signup(req domain.SignupRequest) (string, error) {
	return c.message(http.MethodPost, "/scores/signup/", req)
}

// Login checks a player's credentials
func (c *Client) Login(req domain.LoginRequest) (string, error) {
	return c.message(http.MethodPost, "/scores/login/", req)
}

// UpdateScore overwrites a player's score
func (c *Client) UpdateScore(submission domain.ScoreSubmission) (string, error) {
	return c.message(http.MethodPut, "/scores/update_user_score/", submission)
}

// DeleteScore removes a player
func (c *Client) DeleteScore(playerName string) (string, error) {
	return c.message(http.MethodDelete, "/scores/delete_user_score/"+url.PathEscape(playerName), nil)
}

// Health fetches the server health status
func (c *Client) Health() (map[string]string, error) {
	var status map[string]string
	if err := c.Do(http.MethodGet, "/health", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *Client) message(method, path string, body any) (string, error) {
	var resp domain.MessageResponse
	if err := c.Do(method, path, body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
