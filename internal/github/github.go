// Package github is a minimal GitHub client covering the two read paths the
// sync needs: the contents API and raw.githubusercontent.com. It is
// unauthenticated, so all outbound requests go through a shared rate limiter.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAPIBase = "https://api.github.com"
	defaultRawBase = "https://raw.githubusercontent.com"

	// userAgent identifies the sync tool on every request.
	userAgent = "McPhersonGroup-PostSync/1.0"

	requestTimeout = 30 * time.Second
)

// Response is an HTTP response that made it back over the wire. Transport
// failures never produce one; Get returns nil for those.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response carries a 200.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// Client talks to the GitHub API and raw content hosts. APIBase and RawBase
// exist so tests can point it at a local server.
type Client struct {
	APIBase string
	RawBase string

	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient creates a client with the production endpoints.
func NewClient(log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		APIBase:    defaultAPIBase,
		RawBase:    defaultRawBase,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		log:        log,
	}
}

// SiteRepo returns the name of a member's GitHub Pages repository.
func SiteRepo(username string) string {
	return username + ".github.io"
}

// ContentsURL builds the contents API URL for a directory or file.
func (c *Client) ContentsURL(username, path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.APIBase, username, SiteRepo(username), strings.Trim(path, "/"))
}

// RawURL builds the raw content URL for a file on the main branch.
func (c *Client) RawURL(username, path, filename string) string {
	return fmt.Sprintf("%s/%s/%s/main/%s/%s",
		c.RawBase, username, SiteRepo(username), strings.Trim(path, "/"), filename)
}

// BlobURL builds the human-facing URL for a file on the main branch.
func BlobURL(username, path, filename string) string {
	return fmt.Sprintf("https://github.com/%s/%s/blob/main/%s/%s",
		username, SiteRepo(username), strings.Trim(path, "/"), filename)
}

// Get performs a GET and returns the response, or nil when the request
// failed at the transport level. Every network-level failure is absorbed
// here; callers only ever see "no response" and decide how to proceed.
func (c *Client) Get(ctx context.Context, url string) *Response {
	if err := c.limiter.Wait(ctx); err != nil {
		c.log.Warn("request aborted", "url", url, "error", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Warn("request failed", "url", url, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed", "url", url, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("reading response failed", "url", url, "error", err)
		return nil
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}
}

// ContentEntry is one descriptor from a contents API directory listing.
type ContentEntry struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Path    string `json:"path"`
	URL     string `json:"url"`
	HTMLURL string `json:"html_url"`
}

// DecodeListing parses a contents API directory listing body.
func DecodeListing(body []byte) ([]ContentEntry, error) {
	var entries []ContentEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse directory listing: %w", err)
	}
	return entries, nil
}

// DecodeFileContent parses a contents API file body and decodes its
// base64-encoded content to text.
func DecodeFileContent(body []byte) (string, error) {
	var file struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &file); err != nil {
		return "", fmt.Errorf("failed to parse file content response: %w", err)
	}

	// The API wraps base64 content across lines.
	raw := strings.ReplaceAll(file.Content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode file content: %w", err)
	}
	return string(decoded), nil
}
