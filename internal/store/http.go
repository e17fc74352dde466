package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/zombor/billed/internal/bill"
)

// APIError is a non-2xx answer from the bills API. Its message is the one
// shown to employees, e.g. "Erreur 404".
type APIError struct {
	StatusCode int
	Body       string

	// Message and Fields are decoded from a JSON error body
	Message string
	Fields  bill.ValidationErrors
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Erreur %d", e.StatusCode)
}

// Unwrap exposes the failing fields so callers can show them inline
func (e *APIError) Unwrap() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e.Fields
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var decoded bill.ErrorResponse
	if json.Unmarshal(body, &decoded) == nil {
		apiErr.Message = decoded.Error
		apiErr.Fields = decoded.Fields
	}
	return apiErr
}

// HTTPClient talks to a remote bills API
type HTTPClient struct {
	baseURL  *url.URL
	client   *http.Client
	username string
	password string
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithBasicAuth sends credentials with every request
func WithBasicAuth(username, password string) Option {
	return func(c *HTTPClient) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient replaces the default client
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a client for the API rooted at baseURL
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	c := &HTTPClient{
		baseURL: u,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) Bills() BillsStore {
	return &httpBills{c: c}
}

// resolve turns an API-relative link into an absolute URL
func (c *HTTPClient) resolve(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.baseURL.ResolveReference(u).String()
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling bills API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Warn("Bills API error", "method", method, "path", path, "status", resp.StatusCode, "body", string(data))
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// writeFilePart adds a receipt to a multipart body, keeping its content type
func writeFilePart(w *multipart.Writer, file *bill.File) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(file.Data)
	return err
}

type httpBills struct {
	c *HTTPClient
}

func (b *httpBills) List(ctx context.Context, email string) ([]*bill.Bill, error) {
	path := "/api/bills"
	if email != "" {
		path += "?" + url.Values{"email": {email}}.Encode()
	}
	var bills []*bill.Bill
	if err := b.c.do(ctx, http.MethodGet, path, nil, "", http.StatusOK, &bills); err != nil {
		return nil, err
	}
	for _, bl := range bills {
		bl.FileURL = b.c.resolve(bl.FileURL)
	}
	return bills, nil
}

func (b *httpBills) Create(ctx context.Context, payload bill.Payload, file *bill.File) (*bill.Bill, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding bill: %w", err)
	}
	if err := w.WriteField("bill", string(data)); err != nil {
		return nil, fmt.Errorf("writing bill field: %w", err)
	}
	if file != nil {
		if err := writeFilePart(w, file); err != nil {
			return nil, fmt.Errorf("writing receipt: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var created bill.Bill
	if err := b.c.do(ctx, http.MethodPost, "/api/bills", &body, w.FormDataContentType(), http.StatusCreated, &created); err != nil {
		return nil, err
	}
	created.FileURL = b.c.resolve(created.FileURL)
	return &created, nil
}

func (b *httpBills) Update(ctx context.Context, id string, update bill.Update) (*bill.Bill, error) {
	data, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("encoding update: %w", err)
	}
	var updated bill.Bill
	path := "/api/bills/" + url.PathEscape(id)
	if err := b.c.do(ctx, http.MethodPatch, path, bytes.NewReader(data), "application/json", http.StatusOK, &updated); err != nil {
		return nil, err
	}
	updated.FileURL = b.c.resolve(updated.FileURL)
	return &updated, nil
}

func (b *httpBills) Scan(ctx context.Context, file *bill.File) (*bill.Suggestion, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := writeFilePart(w, file); err != nil {
		return nil, fmt.Errorf("writing receipt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var suggestion bill.Suggestion
	if err := b.c.do(ctx, http.MethodPost, "/api/bills/scan", &body, w.FormDataContentType(), http.StatusOK, &suggestion); err != nil {
		return nil, err
	}
	return &suggestion, nil
}
