// Package backend talks to the wellness backend over HTTP/JSON.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"moodmate/internal/config"
	"moodmate/internal/model"
	"moodmate/internal/utils"
)

var (
	// ErrUnsuccessful is returned when the envelope carries success:false.
	ErrUnsuccessful = errors.New("backend reported failure")
	// ErrMissingData is returned when a successful envelope has no data.
	ErrMissingData = errors.New("backend response missing data")
)

// StatusError is a non-2xx HTTP reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Body)
}

// TokenSource yields the current bearer credential.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken always returns tok.
func StaticToken(tok string) TokenSource {
	return func(context.Context) (string, error) { return tok, nil }
}

type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
}

func NewClient(cfg config.ClientConfig, token TokenSource) *Client {
	return NewClientWithHTTP(cfg.BaseURL, utils.NewHTTPClient(cfg.RequestTimeout), token)
}

// NewClientWithHTTP lets tests inject an httptest client.
func NewClientWithHTTP(baseURL string, hc *http.Client, token TokenSource) *Client {
	if token == nil {
		token = StaticToken("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		token:   token,
	}
}

// ListSessions fetches GET /chat/history.
func (c *Client) ListSessions(ctx context.Context) ([]model.HistoryItem, error) {
	var env model.Envelope[[]model.HistoryItem]
	if err := c.do(ctx, http.MethodGet, "/chat/history", nil, nil, &env); err != nil {
		return nil, err
	}
	items, err := unwrap(env)
	if err != nil {
		return nil, err
	}
	return *items, nil
}

// FetchTranscript fetches GET /chat/session/{id}.
func (c *Client) FetchTranscript(ctx context.Context, sessionID string) ([]model.Message, error) {
	var env model.Envelope[model.TranscriptData]
	path := "/chat/session/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &env); err != nil {
		return nil, err
	}
	data, err := unwrap(env)
	if err != nil {
		return nil, err
	}
	return model.ToMessages(data.Messages), nil
}

// SendMessage posts to /chat/send. An empty sessionID asks the server to open a new session.
func (c *Client) SendMessage(ctx context.Context, text, sessionID string) (*model.SendOutcome, error) {
	req := model.SendRequest{Message: text, SessionID: sessionID}
	var env model.Envelope[model.SendData]
	if err := c.do(ctx, http.MethodPost, "/chat/send", nil, req, &env); err != nil {
		return nil, err
	}
	data, err := unwrap(env)
	if err != nil {
		return nil, err
	}
	if data.SessionID == "" {
		return nil, fmt.Errorf("%w: sessionId", ErrMissingData)
	}
	return &model.SendOutcome{
		SessionID:    data.SessionID,
		Messages:     model.ToMessages(data.Response),
		GenerateTask: data.GenerateTask,
		Task:         data.Task,
	}, nil
}

// FetchTask fetches GET /task/{sessionId}. A null data field yields (nil, nil).
func (c *Client) FetchTask(ctx context.Context, sessionID string) (*model.Task, error) {
	var env model.Envelope[model.Task]
	path := "/task/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, unsuccessful(env.Message)
	}
	return env.Data, nil
}

// CompleteTask issues PATCH /task/{id}/complete.
func (c *Client) CompleteTask(ctx context.Context, taskID, sessionID string) error {
	q := url.Values{}
	q.Set("taskId", taskID)
	q.Set("sessionId", sessionID)

	var env model.Envelope[json.RawMessage]
	path := "/task/" + url.PathEscape(taskID) + "/complete"
	if err := c.do(ctx, http.MethodPatch, path, q, nil, &env); err != nil {
		return err
	}
	if !env.Success {
		return unsuccessful(env.Message)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func unwrap[T any](env model.Envelope[T]) (*T, error) {
	if !env.Success {
		return nil, unsuccessful(env.Message)
	}
	if env.Data == nil {
		return nil, ErrMissingData
	}
	return env.Data, nil
}

func unsuccessful(msg string) error {
	if msg == "" {
		return ErrUnsuccessful
	}
	return fmt.Errorf("%w: %s", ErrUnsuccessful, msg)
}
