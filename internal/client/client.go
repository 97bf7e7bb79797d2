// Package client is a typed HTTP client for the G-Doc API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	BaseURLEnv     = "GDOC_API_BASE_URL"

	defaultJSONTimeout   = 10 * time.Second
	defaultUploadTimeout = 30 * time.Second
)

type Client struct {
	baseURL       string
	httpClient    *http.Client
	jsonTimeout   time.Duration
	uploadTimeout time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeouts(jsonTimeout, uploadTimeout time.Duration) Option {
	return func(c *Client) {
		c.jsonTimeout = jsonTimeout
		c.uploadTimeout = uploadTimeout
	}
}

// New builds a client for baseURL, e.g. "http://localhost:8080/api". An empty
// baseURL uses GDOC_API_BASE_URL or DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv(BaseURLEnv))
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{},
		jsonTimeout:   defaultJSONTimeout,
		uploadTimeout: defaultUploadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type errorBody struct {
	Detail string   `json:"detail"`
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// endpoint joins path segments under the base URL, with the trailing slash the API uses.
func (c *Client) endpoint(query url.Values, segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u := c.baseURL + "/" + strings.Join(escaped, "/") + "/"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload any, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, &Error{Reason: ReasonValidation, Message: "unable to encode request", Err: err}
		}
		body = bytes.NewReader(raw)
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.jsonTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, body)
	if err != nil {
		return 0, &Error{Reason: ReasonTransport, Message: err.Error(), Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) doMultipart(ctx context.Context, method, endpoint string, up Upload, out any) (int, error) {
	if up.Filename == "" || len(up.Content) == 0 {
		return 0, missingFile()
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("archivo", up.Filename)
	if err != nil {
		return 0, &Error{Reason: ReasonValidation, Message: err.Error(), Err: err}
	}
	if _, err := fw.Write(up.Content); err != nil {
		return 0, &Error{Reason: ReasonValidation, Message: err.Error(), Err: err}
	}
	for _, field := range up.fields() {
		if field.value == "" {
			continue
		}
		if err := mw.WriteField(field.name, field.value); err != nil {
			return 0, &Error{Reason: ReasonValidation, Message: err.Error(), Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return 0, &Error{Reason: ReasonValidation, Message: err.Error(), Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, &buf)
	if err != nil {
		return 0, &Error{Reason: ReasonTransport, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) (int, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &Error{Reason: ReasonTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &Error{Reason: ReasonTransport, Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Reason: ReasonStatus, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var parsed errorBody
		if json.Unmarshal(respBody, &parsed) == nil {
			switch {
			case parsed.Detail != "":
				apiErr.Message = parsed.Detail
			case parsed.Error != "":
				apiErr.Message = parsed.Error
			}
			apiErr.Fields = parsed.Fields
		}
		return resp.StatusCode, apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return resp.StatusCode, nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], respBody...)
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, &Error{Reason: ReasonDecode, Status: resp.StatusCode, Message: fmt.Sprintf("unable to parse response: %v", err), Err: err}
	}
	return resp.StatusCode, nil
}

// normalizeList accepts a bare array or a {results: [...]} envelope. Any other
// shape yields an empty slice.
func normalizeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []T{}, nil
	}
	switch trimmed[0] {
	case '[':
	case '{':
		var envelope struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return []T{}, nil
		}
		trimmed = bytes.TrimSpace(envelope.Results)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return []T{}, nil
		}
	default:
		return []T{}, nil
	}

	out := make([]T, 0)
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, &Error{Reason: ReasonDecode, Message: fmt.Sprintf("unable to parse list items: %v", err), Err: err}
	}
	return out, nil
}

func getList[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var raw json.RawMessage
	if _, err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	return normalizeList[T](raw)
}

func idSegment(id int64) string {
	return strconv.FormatInt(id, 10)
}
