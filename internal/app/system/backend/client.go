// Package backend is the HTTP client for the REST backend that owns every
// resource collection. It implements the list/delete/status/bulk/import
// contract shared by all resources and leaves resource-specific semantics
// to the caller's catalog definitions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/carehub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// AllRows is the per_page value that asks the backend for an unpaginated list.
const AllRows = -1

// Config holds client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables limiting
	Burst     int
	UserAgent string
}

// Observer receives one call per completed backend request.
type Observer interface {
	ObserveRequest(resource, op string, status int, elapsed time.Duration)
}

// Client is shared by all sessions. Per-user calls go through As.
type Client struct {
	base      *url.URL
	transport http.RoundTripper
	timeout   time.Duration
	limiter   *rate.Limiter
	userAgent string
	observer  Observer
	log       *zap.Logger
}

// New builds a Client. The base URL must be absolute.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("backend url %q is not absolute", cfg.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		base:      u,
		transport: http.DefaultTransport,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		log:       logger,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.userAgent == "" {
		c.userAgent = "carehub"
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// SetObserver installs a request observer (metrics).
func (c *Client) SetObserver(o Observer) { c.observer = o }

// SetTransport replaces the underlying round tripper. Tests use this.
func (c *Client) SetTransport(rt http.RoundTripper) { c.transport = rt }

// As returns an API bound to the given bearer token. An empty token
// yields anonymous calls (used for sign-in).
func (c *Client) As(token string) *API {
	rt := c.transport
	if token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.transport,
		}
	}
	return &API{c: c, http: &http.Client{Transport: rt, Timeout: c.timeout}}
}

// API performs backend calls on behalf of one user.
type API struct {
	c    *Client
	http *http.Client
}

// ListResult is one list response: the page envelope plus any auxiliary
// lookup collections returned alongside it.
type ListResult struct {
	Page    models.PageEnvelope
	Lookups models.Lookups
}

// List fetches GET /api/{plural} with the given query parameters.
// The response is { "<plural>": PageEnvelope, ...lookups }.
func (a *API) List(ctx context.Context, plural string, params url.Values) (ListResult, error) {
	var raw map[string]json.RawMessage
	if err := a.do(ctx, plural, "list", http.MethodGet, plural, params, nil, "", &raw); err != nil {
		return ListResult{}, err
	}
	return decodeList(plural, raw)
}

// ListAll fetches every row. limit > 0 sends that explicit per_page
// instead of the AllRows sentinel; export uses 10000 this way.
func (a *API) ListAll(ctx context.Context, plural string, params url.Values, limit int) ([]models.Record, error) {
	q := cloneValues(params)
	q.Set("page", "1")
	if limit > 0 {
		q.Set("per_page", strconv.Itoa(limit))
	} else {
		q.Set("per_page", strconv.Itoa(AllRows))
	}
	res, err := a.List(ctx, plural, q)
	if err != nil {
		return nil, err
	}
	return res.Page.Data, nil
}

// Delete calls DELETE /api/{plural}/delete/{id} and returns the server message.
func (a *API) Delete(ctx context.Context, plural string, id int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	p := path.Join(plural, "delete", strconv.FormatInt(id, 10))
	if err := a.do(ctx, plural, "delete", http.MethodDelete, p, nil, nil, "", &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// SetStatus calls PUT /api/{plural}/{id}/status.
func (a *API) SetStatus(ctx context.Context, plural string, id int64, status string) (string, error) {
	if status != models.StatusActive && status != models.StatusInactive {
		return "", fmt.Errorf("invalid status %q", status)
	}
	var out struct {
		Message string `json:"message"`
	}
	p := path.Join(plural, strconv.FormatInt(id, 10), "status")
	body, err := jsonBody(map[string]string{"status": status})
	if err != nil {
		return "", err
	}
	if err := a.do(ctx, plural, "status", http.MethodPut, p, nil, body, "application/json", &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Bulk actions supported by the backend.
const (
	BulkActivate   = "activate"
	BulkDeactivate = "deactivate"
)

// Bulk calls PUT /api/{plural}/bulk-{action} with { idsKey: ids }.
func (a *API) Bulk(ctx context.Context, plural, idsKey, action string, ids []int64) (string, error) {
	if action != BulkActivate && action != BulkDeactivate {
		return "", fmt.Errorf("invalid bulk action %q", action)
	}
	var out struct {
		Message string `json:"message"`
	}
	body, err := jsonBody(map[string][]int64{idsKey: ids})
	if err != nil {
		return "", err
	}
	p := path.Join(plural, "bulk-"+action)
	if err := a.do(ctx, plural, "bulk_"+action, http.MethodPut, p, nil, body, "application/json", &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Import uploads an import file as multipart form field "file".
func (a *API) Import(ctx context.Context, plural, filename, contentType string, r io.Reader) (models.ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return models.ImportResult{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return models.ImportResult{}, err
	}
	if err := mw.Close(); err != nil {
		return models.ImportResult{}, err
	}

	var out models.ImportResult
	if err := a.do(ctx, plural, "import", http.MethodPost, path.Join(plural, "import"), nil, &buf, mw.FormDataContentType(), &out); err != nil {
		return models.ImportResult{}, err
	}
	return out, nil
}

// Blob is a binary download relayed from the backend.
type Blob struct {
	Body        []byte
	ContentType string
	Filename    string
}

// DownloadTemplate fetches GET /api/{plural}/download-template.
func (a *API) DownloadTemplate(ctx context.Context, plural string) (Blob, error) {
	resp, err := a.send(ctx, plural, "template", http.MethodGet, path.Join(plural, "download-template"), nil, nil, "")
	if err != nil {
		return Blob{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Blob{}, err
	}
	b := Blob{Body: body, ContentType: resp.Header.Get("Content-Type"), Filename: plural + "_template.xlsx"}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if name := filenameFrom(cd); name != "" {
			b.Filename = name
		}
	}
	if b.ContentType == "" {
		b.ContentType = "application/octet-stream"
	}
	return b, nil
}

// Create posts a new record to POST /api/{plural}.
func (a *API) Create(ctx context.Context, plural string, payload map[string]any) (models.Record, error) {
	return a.write(ctx, plural, "create", http.MethodPost, plural, payload)
}

// Update sends PUT /api/{plural}/{id}.
func (a *API) Update(ctx context.Context, plural string, id int64, payload map[string]any) (models.Record, error) {
	return a.write(ctx, plural, "update", http.MethodPut, path.Join(plural, strconv.FormatInt(id, 10)), payload)
}

// Assign sends PUT to a resource-specific assign path containing "{id}".
func (a *API) Assign(ctx context.Context, plural, assignPath string, id int64, payload map[string]any) (models.Record, error) {
	p := strings.ReplaceAll(assignPath, "{id}", strconv.FormatInt(id, 10))
	return a.write(ctx, plural, "assign", http.MethodPut, p, payload)
}

// Login exchanges credentials for a token at POST /api/login.
func (a *API) Login(ctx context.Context, email, password string) (models.LoginResult, error) {
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return models.LoginResult{}, err
	}
	var out models.LoginResult
	if err := a.do(ctx, "auth", "login", http.MethodPost, "login", nil, body, "application/json", &out); err != nil {
		return models.LoginResult{}, err
	}
	if out.Token == "" {
		return models.LoginResult{}, fmt.Errorf("backend login: empty token")
	}
	return out, nil
}

// Logout revokes the bound token at POST /api/logout.
func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, "auth", "logout", http.MethodPost, "logout", nil, nil, "", nil)
}

// Ping checks reachability with GET /api/health; any non-5xx answer counts.
func (a *API) Ping(ctx context.Context) error {
	resp, err := a.send(ctx, "health", "ping", http.MethodGet, "health", nil, nil, "")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

func (a *API) write(ctx context.Context, resource, op, method, p string, payload map[string]any) (models.Record, error) {
	body, err := jsonBody(payload)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := a.do(ctx, resource, op, method, p, nil, body, "application/json", &raw); err != nil {
		return nil, err
	}
	return decodeWritten(raw)
}

// do sends the request and decodes a JSON response into out (when non-nil).
func (a *API) do(ctx context.Context, resource, op, method, p string, params url.Values, body io.Reader, contentType string, out any) error {
	resp, err := a.send(ctx, resource, op, method, p, params, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("backend %s: decode: %w", p, err)
	}
	return nil
}

// send performs the HTTP round trip. Non-2xx responses are returned as
// *APIError with the body consumed.
func (a *API) send(ctx context.Context, resource, op, method, p string, params url.Values, body io.Reader, contentType string) (*http.Response, error) {
	c := a.c
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := *c.base
	u.Path = path.Join("/", c.base.Path, "api", p)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := a.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(resource, op, 0, elapsed)
		c.log.Debug("backend request failed",
			zap.String("method", method), zap.String("path", u.Path), zap.Error(err))
		return nil, err
	}
	c.observe(resource, op, resp.StatusCode, elapsed)
	c.log.Debug("backend request",
		zap.String("method", method),
		zap.String("path", u.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode, Path: "/api/" + p}
		var eb errorBody
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); len(data) > 0 {
			if json.Unmarshal(data, &eb) == nil {
				apiErr.Message = eb.text()
			}
		}
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) observe(resource, op string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(resource, op, status, elapsed)
	}
}
