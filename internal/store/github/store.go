// Package github implements the content store against the GitHub
// repository contents API. The version token is the file's blob SHA: it is
// read before a write and passed back so GitHub rejects the write if the
// file changed in between.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/serpmax/content-api/internal/store"
)

const defaultBaseURL = "https://api.github.com"

// Config captures the parameters required to talk to a GitHub repository.
type Config struct {
	// BaseURL overrides the API host, mainly for tests.
	BaseURL string
	Token   string
	Owner   string
	Repo    string
	Branch  string
}

// Store reads and writes repository files via the contents API.
type Store struct {
	client *http.Client
	cfg    Config
}

// New creates a GitHub-backed content store.
func New(cfg Config) (*Store, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	return &Store{
		client: &http.Client{Timeout: 15 * time.Second},
		cfg:    cfg,
	}, nil
}

type contentResponse struct {
	SHA  string `json:"sha"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type writeResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
}

// Stat fetches the current blob SHA of the file at path.
func (s *Store) Stat(ctx context.Context, path string) (string, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.contentsURL(path), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get contents: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		var body contentResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode contents response: %w", err)
		}
		return body.SHA, nil
	case http.StatusNotFound:
		return "", store.ErrNotFound
	default:
		return "", s.statusError(resp)
	}
}

// Write creates or updates the file at path. A non-empty expectedToken is
// sent as the expected blob SHA; GitHub answers 409 when it no longer
// matches, which is surfaced as store.ErrConflict.
func (s *Store) Write(ctx context.Context, path string, data []byte, expectedToken string) (string, error) {
	message := fmt.Sprintf("Add %s", path)
	if expectedToken != "" {
		message = fmt.Sprintf("Update %s", path)
	}
	payload, err := json.Marshal(writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  s.cfg.Branch,
		SHA:     expectedToken,
	})
	if err != nil {
		return "", fmt.Errorf("marshal write request: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPut, s.contentsURL(path), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("put contents: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var body writeResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode write response: %w", err)
		}
		return body.Content.SHA, nil
	case http.StatusConflict:
		return "", store.ErrConflict
	default:
		return "", s.statusError(resp)
	}
}

// List returns the names of files directly under dir. A missing directory
// is reported as an empty listing, matching a repository with no articles.
func (s *Store) List(ctx context.Context, dir string) ([]string, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.contentsURL(dir), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		var entries []contentResponse
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Type == "file" {
				names = append(names, e.Name)
			}
		}
		return names, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, s.statusError(resp)
	}
}

func (s *Store) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		s.cfg.BaseURL, s.cfg.Owner, s.cfg.Repo, path, url.QueryEscape(s.cfg.Branch))
}

func (s *Store) newRequest(ctx context.Context, method, rawURL string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, body)
	}
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	return req, nil
}

func (s *Store) statusError(resp *http.Response) error {
	var body apiError
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return fmt.Errorf("github api: %s (status %d)", body.Message, resp.StatusCode)
	}
	return fmt.Errorf("github api: unexpected status %d", resp.StatusCode)
}
