package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

const githubAPI = "https://api.github.com"

// GitHubBackend is a read-only mirror: content committed to a repository
// under "<dir>/<type>/<hex id>" is fetched through the contents API.
type GitHubBackend struct {
	owner   string
	repo    string
	dir     string
	ref     string
	token   string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

type githubContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func NewGitHubBackend(owner, repo, dir, ref, token string, log *slog.Logger) *GitHubBackend {
	return &GitHubBackend{
		owner:   owner,
		repo:    repo,
		dir:     strings.Trim(dir, "/"),
		ref:     ref,
		token:   token,
		baseURL: githubAPI,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

func (b *GitHubBackend) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	return b.client.Do(req)
}

func (b *GitHubBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", b.baseURL, b.owner, b.repo, path.Join(b.dir, objectName(id, contentType)))
	if b.ref != "" {
		url += "?ref=" + b.ref
	}

	resp, err := b.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, interfaces.ErrContentNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("github API error: %s: %s", resp.Status, body)
	}

	var content githubContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("failed to decode github response: %w", err)
	}
	if content.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected github content encoding %q", content.Encoding)
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode github content: %w", err)
	}
	if err := verifyContent(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

var ErrReadOnly = errors.New("storage backend is read-only")

func (b *GitHubBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	return interfaces.ComputeID(data), ErrReadOnly
}

func (b *GitHubBackend) Available(ctx context.Context) bool {
	resp, err := b.get(ctx, fmt.Sprintf("%s/repos/%s/%s", b.baseURL, b.owner, b.repo))
	if err != nil {
		b.log.Debug("GitHub backend unavailable", "err", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (b *GitHubBackend) Name() string {
	return fmt.Sprintf("github-%s-%s", b.owner, b.repo)
}

func (b *GitHubBackend) LocationURI() string {
	return fmt.Sprintf("github://%s/%s/%s", b.owner, b.repo, b.dir)
}
