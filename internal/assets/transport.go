package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Transport fetches asset bytes and posts multipart uploads. Implemented
// by HTTPTransport; tests substitute fakes.
type Transport interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
	PostFile(ctx context.Context, url string, header http.Header, fields map[string]string, fileField, filePath string) error
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned %d: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("%s returned %d", e.URL, e.Status)
}

// HTTPTransport is the production Transport over net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport with the given per-request timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

// Fetch GETs a URL and returns the body. Any non-2xx status is a
// *StatusError.
func (t *HTTPTransport) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building fetch request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp.Body)
		resp.Body.Close()
		return nil, &StatusError{URL: url, Status: resp.StatusCode, Body: body}
	}
	return resp.Body, nil
}

// PostFile POSTs a file as multipart form data along with extra form
// fields. Any non-2xx status is a *StatusError.
func (t *HTTPTransport) PostFile(ctx context.Context, url string, header http.Header, fields map[string]string, fileField, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	var payload bytes.Buffer
	writer := multipart.NewWriter(&payload)

	part, err := writer.CreateFormFile(fileField, filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("reading %s: %w", filePath, err)
	}
	for name, val := range fields {
		if err := writer.WriteField(name, val); err != nil {
			return fmt.Errorf("writing form field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &payload)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	for name, vals := range header {
		for _, v := range vals {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
	return nil
}

// readErrorBody grabs a short prefix of an error response for diagnostics.
func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(b))
}
