// Package anchorstore publishes resolved anchors to a key-value store over
// HTTP.
package anchorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/htmlpath/internal/document"
)

const keyPrefix = "anchors/"

// Record is the value stored per document.
type Record struct {
	DocID       string            `json:"doc_id"`
	Title       string            `json:"title,omitempty"`
	Format      string            `json:"format,omitempty"`
	ContentHash string            `json:"content_hash,omitempty"`
	Anchors     []document.Anchor `json:"anchors"`
	StoredAt    time.Time         `json:"stored_at"`
}

// putRequest is the body for PUT /kv/{key}.
type putRequest struct {
	Value  Record `json:"value"`
	Source string `json:"source,omitempty"`
}

// getResponse is the response from GET /kv/{key}.
type getResponse struct {
	Key   string `json:"key_path"`
	Value Record `json:"value"`
}

// StatusError is returned when the store answers with an unexpected status.
type StatusError struct {
	Op     string
	DocID  string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.DocID, e.Status, e.Body)
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func statusError(op, docID string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{Op: op, DocID: docID, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Client communicates with the store's HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) keyURL(docID string) string {
	return c.baseURL + "/kv/" + keyPrefix + url.PathEscape(docID)
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// PutAnchors stores or replaces the anchors for a document.
func (c *Client) PutAnchors(ctx context.Context, rec Record) error {
	if rec.DocID == "" {
		return fmt.Errorf("put anchors: empty doc id")
	}
	if rec.StoredAt.IsZero() {
		rec.StoredAt = time.Now().UTC()
	}
	body, err := json.Marshal(putRequest{Value: rec, Source: "htmlpath"})
	if err != nil {
		return fmt.Errorf("marshal anchors: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, c.keyURL(rec.DocID), bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put anchors: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("put anchors", rec.DocID, resp)
	}
	return nil
}

// GetAnchors retrieves the anchors for a document. It returns nil, nil when
// the document is unknown.
func (c *Client) GetAnchors(ctx context.Context, docID string) (*Record, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.keyURL(docID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get anchors: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get anchors", docID, resp)
	}

	var out getResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode anchors: %w", err)
	}
	return &out.Value, nil
}

// DeleteAnchors removes a document's anchors. Deleting an unknown document
// is not an error.
func (c *Client) DeleteAnchors(ctx context.Context, docID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.keyURL(docID), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete anchors: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("delete anchors", docID, resp)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
