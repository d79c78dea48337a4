// Package backend is the HTTP client for the prediction service that
// supplies bounding boxes and object boundaries and receives corrections.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Operation names used in errors, logs and metrics.
const (
	OpUploadImage       = "upload_image"
	OpGetBoundingBoxes  = "get_bounding_boxes"
	OpGetObjectBoundary = "get_object_boundary"
	OpSubmitResult      = "submit_result"
)

const (
	maxResponseBytes     = 32 << 20
	maxErrorMessageRunes = 200
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; Timeout is ignored when set
	Logger     *slog.Logger
}

// Client talks to the prediction backend. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: u, httpClient: hc, logger: logger}, nil
}

// UploadImage sends an image as the multipart field "file".
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return UploadResponse{}, &RequestError{Op: OpUploadImage, Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResponse{}, &RequestError{Op: OpUploadImage, Err: fmt.Errorf("reading image: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return UploadResponse{}, &RequestError{Op: OpUploadImage, Err: err}
	}

	var out UploadResponse
	err = c.do(ctx, OpUploadImage, "/upload_image", mw.FormDataContentType(), &body, &out)
	return out, err
}

// GetBoundingBoxes asks the detector for the objects in an uploaded image.
func (c *Client) GetBoundingBoxes(ctx context.Context, ref ImageRef) (BoundingBoxesResponse, error) {
	var out BoundingBoxesResponse
	err := c.postJSON(ctx, OpGetBoundingBoxes, "/get_bounding_boxes", ref, &out)
	return out, err
}

// GetObjectBoundary asks for the contour of the object inside a bounding box.
func (c *Client) GetObjectBoundary(ctx context.Context, req ObjectBoundaryRequest) (ObjectBoundaryResponse, error) {
	var out ObjectBoundaryResponse
	err := c.postJSON(ctx, OpGetObjectBoundary, "/get_object_boundary", req, &out)
	return out, err
}

// SubmitResult stores a correction. The acknowledgement body is returned as is.
func (c *Client) SubmitResult(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	var out json.RawMessage
	err := c.postJSON(ctx, OpSubmitResult, "/submit_result", req, &out)
	return out, err
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("encoding request: %w", err)}
	}
	return c.do(ctx, op, path, "application/json", bytes.NewReader(data), out)
}

func (c *Client) do(ctx context.Context, op, path, contentType string, body io.Reader, out any) error {
	start := time.Now()
	status, err := c.roundTrip(ctx, op, path, contentType, body, out)
	observeBackendCall(op, status, time.Since(start))
	if err != nil {
		return err
	}
	c.logger.Debug("backend call", "operation", op, "status", status, "duration", time.Since(start))
	return nil
}

func (c *Client) roundTrip(ctx context.Context, op, path, contentType string, body io.Reader, out any) (int, error) {
	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return 0, &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &RequestError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &RequestError{Op: op, Status: resp.StatusCode, Err: errors.New(errorMessage(data))}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return resp.StatusCode, nil
}

// errorMessage extracts a readable message from an error body.
func errorMessage(body []byte) string {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		switch {
		case er.Message != "":
			return er.Message
		case er.Error != "":
			return er.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response"
	}
	if r := []rune(msg); len(r) > maxErrorMessageRunes {
		msg = string(r[:maxErrorMessageRunes]) + "..."
	}
	return msg
}
