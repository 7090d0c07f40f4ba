// Package client is the Go counterpart of the editor front end: a typed HTTP
// client for every DocuMind procedure and the application state that drives
// it (current user, document list, selected document, sources and assistance
// history).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

const (
	headerUserID          = "X-User-ID"
	headerIdempotencyKey  = "Idempotency-Key"
	headerIdempotencyFlag = "Idempotency-Replayed"
	maxResponseBytes      = 4 << 20
)

// APIError is a non-2xx reply decoded from the server error envelope.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("documind api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("documind api: %s (%d): %s", e.Code, e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0 when err did not
// come from the server.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsTransport reports whether err is a failure to reach the server at all
// (dial, timeout, malformed reply) rather than an error the server returned.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}

// Client calls the DocuMind HTTP API rooted at BaseURL (for example
// "http://localhost:8080/api/v1").
type Client struct {
	BaseURL string

	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// New returns a Client for baseURL with a 30s default timeout.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UpdateDocumentInput carries the optional fields of updateDocument. Nil
// pointers leave the stored value unchanged.
type UpdateDocumentInput struct {
	UserID  int64
	Title   *string
	Content *string
}

// SourceInput is the payload of createSource.
type SourceInput struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	SourceType string  `json:"source_type"`
	SourceURL  *string `json:"source_url,omitempty"`
}

// AssistanceInput is the payload of requestAiAssistance.
type AssistanceInput struct {
	Prompt         string `json:"prompt"`
	Context        string `json:"context,omitempty"`
	AssistanceType string `json:"assistance_type"`
}

// AssistanceResult is a stored assistance record plus whether the server
// replayed it for a repeated Idempotency-Key.
type AssistanceResult struct {
	Response domain.AiAssistanceResponse
	Replayed bool
}

type deletedReply struct {
	Deleted bool `json:"deleted"`
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
}

// CreateUser registers a user. A duplicate email yields an *APIError with
// status 409.
func (c *Client) CreateUser(ctx context.Context, email, name string) (*domain.User, error) {
	var u domain.User
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/users",
		body:   map[string]string{"email": email, "name": name},
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureUser returns the user registered under email, creating it if needed.
func (c *Client) EnsureUser(ctx context.Context, email, name string) (*domain.User, error) {
	var u domain.User
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/users/ensure",
		body:   map[string]string{"email": email, "name": name},
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateDocument creates a document owned by userID.
func (c *Client) CreateDocument(ctx context.Context, userID int64, title, content string) (*domain.Document, error) {
	var d domain.Document
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/documents",
		body: map[string]any{
			"title":   title,
			"content": content,
			"user_id": userID,
		},
	}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDocuments lists a page of documents for userID, most recently updated
// first. Zero limit or offset defer to the server defaults.
func (c *Client) GetDocuments(ctx context.Context, userID int64, limit, offset int) ([]domain.Document, error) {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	docs := []domain.Document{}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/documents", query: q}, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument fetches one document. It returns (nil, nil) when the document
// does not exist or belongs to another user.
func (c *Client) GetDocument(ctx context.Context, id, userID int64) (*domain.Document, error) {
	var d *domain.Document
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/documents/" + strconv.FormatInt(id, 10),
		query:  ownerQuery(userID),
	}, &d)
	return d, err
}

// UpdateDocument applies a partial update. It returns (nil, nil) when no
// document matched.
func (c *Client) UpdateDocument(ctx context.Context, id int64, in UpdateDocumentInput) (*domain.Document, error) {
	body := map[string]any{}
	if in.Title != nil {
		body["title"] = *in.Title
	}
	if in.Content != nil {
		body["content"] = *in.Content
	}
	if in.UserID > 0 {
		body["user_id"] = in.UserID
	}
	var d *domain.Document
	_, err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/documents/" + strconv.FormatInt(id, 10),
		body:   body,
	}, &d)
	return d, err
}

// DeleteDocument removes a document and everything attached to it. The
// result reports whether a row was deleted.
func (c *Client) DeleteDocument(ctx context.Context, id, userID int64) (bool, error) {
	var out deletedReply
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/documents/" + strconv.FormatInt(id, 10),
		query:  ownerQuery(userID),
	}, &out)
	return out.Deleted, err
}

// CreateSource attaches a source to documentID.
func (c *Client) CreateSource(ctx context.Context, documentID int64, in SourceInput) (*domain.Source, error) {
	var s domain.Source
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   documentPath(documentID) + "/sources",
		body:   in,
	}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSources lists the sources of documentID in insertion order.
func (c *Client) GetSources(ctx context.Context, documentID int64) ([]domain.Source, error) {
	out := []domain.Source{}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: documentPath(documentID) + "/sources"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSource detaches sourceID from documentID.
func (c *Client) DeleteSource(ctx context.Context, documentID, sourceID int64) (bool, error) {
	var out deletedReply
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   documentPath(documentID) + "/sources/" + strconv.FormatInt(sourceID, 10),
	}, &out)
	return out.Deleted, err
}

// RequestAiAssistance asks for assistance on documentID. A non-empty
// idempotencyKey makes retries return the originally stored record.
func (c *Client) RequestAiAssistance(ctx context.Context, documentID int64, in AssistanceInput, idempotencyKey string) (*AssistanceResult, error) {
	h := http.Header{}
	if idempotencyKey != "" {
		h.Set(headerIdempotencyKey, idempotencyKey)
	}
	var out AssistanceResult
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   documentPath(documentID) + "/assistance",
		body:   in,
		header: h,
	}, &out.Response)
	if err != nil {
		return nil, err
	}
	out.Replayed = resp.Get(headerIdempotencyFlag) == "true"
	return &out, nil
}

// GetAiResponses lists the assistance history of documentID, newest first.
func (c *Client) GetAiResponses(ctx context.Context, documentID int64) ([]domain.AiAssistanceResponse, error) {
	out := []domain.AiAssistanceResponse{}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: documentPath(documentID) + "/assistance"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func documentPath(id int64) string { return "/documents/" + strconv.FormatInt(id, 10) }

func ownerQuery(userID int64) url.Values {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	return q
}

// do sends req and decodes a 2xx body into out. A JSON null body leaves a
// pointer target nil. The reply headers are returned for callers that need
// them.
func (c *Client) do(ctx context.Context, req request, out any) (http.Header, error) {
	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s request failed: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(b)
	}

	u := c.BaseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request failed: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if uid := req.query.Get("user_id"); uid != "" {
		httpReq.Header.Set(headerUserID, uid)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response failed: %w", req.method, req.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.Header, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.Header, fmt.Errorf("decode %s %s response failed: %w", req.method, req.path, err)
	}
	return resp.Header, nil
}

func decodeAPIError(status int, raw []byte) error {
	var env struct {
		RequestID string `json:"request_id"`
		Code      string `json:"code"`
		Message   string `json:"message"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(raw, &env); err == nil && (env.Code != "" || env.Message != "") {
		apiErr.Code = env.Code
		apiErr.Message = env.Message
		apiErr.RequestID = env.RequestID
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
