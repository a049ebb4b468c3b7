// Package scaleway is a small JSON-over-HTTP client for the three Scaleway
// API families snapkeeper talks to: Instance (servers, volumes, legacy
// snapshots), Block Storage (sbs snapshots) and Managed Database (rdb backups).
//
// Responses are validated against a JSON schema before they are decoded, so a
// payload missing a field the caller depends on surfaces as
// ErrMalformedResponse instead of a zero value.
package scaleway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	DefaultBaseURL = "https://api.scaleway.com"
	authHeader     = "X-Auth-Token"
	maxBodyBytes   = 16 << 20
	maxErrorBody   = 2048
)

var ErrMalformedResponse = errors.New("malformed response")

// APIError is returned for any response with status >= 400. Body holds the
// raw response text; it is never decoded.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scaleway %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Options struct {
	BaseURL   string
	SecretKey string
	ProjectID string
	Zone      string
	Region    string
	Timeout   time.Duration
	// HTTPClient overrides the transport; Timeout still applies per request.
	HTTPClient *http.Client
}

type Client struct {
	http      *http.Client
	baseURL   string
	secretKey string
	projectID string
	zone      string
	region    string
	timeout   time.Duration
}

func New(opts Options) (*Client, error) {
	if opts.SecretKey == "" {
		return nil, fmt.Errorf("scaleway: secret key is required")
	}
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("scaleway: project id is required")
	}
	base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		http:      hc,
		baseURL:   base,
		secretKey: opts.SecretKey,
		projectID: opts.ProjectID,
		zone:      opts.Zone,
		region:    opts.Region,
		timeout:   timeout,
	}, nil
}

func (c *Client) ProjectID() string { return c.projectID }
func (c *Client) Zone() string      { return c.zone }
func (c *Client) Region() string    { return c.region }

// do issues one request. params is encoded with go-querystring, in is sent as
// the JSON body, and out (if non-nil) receives the decoded response after it
// passes schema.
func (c *Client) do(ctx context.Context, method, path string, params, in, out any, schema *jsonschema.Schema) error {
	target := c.baseURL + path
	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("encode query for %s: %w", path, err)
		}
		if enc := values.Encode(); enc != "" {
			target += "?" + enc
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode body for %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set(authHeader, c.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("scaleway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("scaleway %s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode >= 400 {
		text := strings.TrimSpace(string(raw))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: text}
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: %s %s: empty body", ErrMalformedResponse, method, path)
	}
	if schema != nil {
		if err := validate(schema, raw); err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}

func validate(schema *jsonschema.Schema, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

const pageSize = 100

// maxPages bounds pagination so a misbehaving endpoint cannot loop forever.
const maxPages = 1000

// paginate calls fetch with page numbers starting at 1 until a page shorter
// than pageSize comes back.
func paginate[T any](fetch func(page int) ([]T, error)) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		items, err := fetch(page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < pageSize {
			return all, nil
		}
	}
	return nil, fmt.Errorf("pagination exceeded %d pages", maxPages)
}

type instancePage struct {
	Page    int `url:"page"`
	PerPage int `url:"per_page"`
}

type sizedPage struct {
	Page     int `url:"page"`
	PageSize int `url:"page_size"`
}
