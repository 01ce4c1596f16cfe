package hubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"MultiChat/entity"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/metrics"
	"MultiChat/internal/session"
)

const refreshPath = "/api/auth/refresh/"

type Client struct {
	baseURL    string
	cdnURL     string
	httpClient *http.Client
	timeout    time.Duration
	session    *session.Session
	metrics    *metrics.Metrics
	log        *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithWidgetCDN sets the loader URL used for locally rendered embed codes.
func WithWidgetCDN(url string) Option {
	return func(c *Client) {
		c.cdnURL = url
	}
}

func New(baseURL string, timeout time.Duration, sess *session.Session, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cdnURL:     defaultCDN,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		session:    sess,
		log:        log.With(sl.Module("hubapi")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *session.Session {
	return c.session
}

// Multipart is a pre-encoded multipart body. Its content type carries the boundary.
type Multipart struct {
	data        []byte
	contentType string
}

// NewMultipart encodes form fields and file uploads under the "files" field.
func NewMultipart(fields map[string]string, uploads []entity.Upload) (*Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	for _, u := range uploads {
		if err := u.Check(); err != nil {
			return nil, err
		}
		part, err := w.CreateFormFile("files", u.Filename)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		n, err := io.Copy(part, io.LimitReader(u.Content, entity.MaxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", u.Filename, err)
		}
		if n > entity.MaxFileSize {
			return nil, entity.FileTooLargeError(u.Filename, n)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return &Multipart{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

func (m *Multipart) ContentType() string {
	return m.contentType
}

// Do sends an authenticated request to the hub and decodes the JSON result into out.
// A 401 on an authenticated request triggers exactly one refresh and one retry.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) (err error) {
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return err
	}

	log := c.log.With(
		slog.String("method", method),
		slog.String("path", path),
	)
	t := time.Now()
	defer func() {
		log = log.With(slog.Duration("duration", time.Since(t)))
		if err != nil {
			log.Debug("hub request", sl.Err(err))
		} else {
			log.Debug("hub request")
		}
	}()

	token := c.session.AccessToken()
	resp, err := c.send(ctx, method, path, payload, contentType, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		drain(resp)
		newToken, rerr := c.session.Refresh(ctx, c.refresh)
		c.metrics.Refresh(rerr == nil)
		if rerr != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if rerr != nil {
			log.Warn("token refresh failed", sl.Err(rerr))
			c.session.Expire()
			return ErrSessionExpired
		}
		resp, err = c.send(ctx, method, path, payload, contentType, newToken)
		if err != nil {
			return err
		}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, contentType, token string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	t := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(t))
		return nil, fmt.Errorf("send request: %w", err)
	}
	c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(t))
	return resp, nil
}

// refresh exchanges the refresh token; it never goes through Do to avoid recursion.
// The exchange is shared by every request waiting on it, so it is detached
// from the cancellation of the caller that started it.
func (c *Client) refresh(ctx context.Context, refresh string) (session.Tokens, error) {
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	payload, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return session.Tokens{}, err
	}
	resp, err := c.send(ctx, http.MethodPost, refreshPath, payload, "application/json", "")
	if err != nil {
		return session.Tokens{}, err
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return session.Tokens{}, decodeError(resp)
	}
	var pair entity.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return session.Tokens{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if pair.Access == "" {
		return session.Tokens{}, fmt.Errorf("refresh response without access token")
	}
	return session.Tokens{Access: pair.Access, Refresh: pair.Refresh}, nil
}

func encodeBody(body interface{}) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "application/json", nil
	case *Multipart:
		return b.data, b.contentType, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Body: map[string]interface{}{}}
	data, err := io.ReadAll(resp.Body)
	if err == nil && len(data) > 0 {
		var parsed map[string]interface{}
		if json.Unmarshal(data, &parsed) == nil && parsed != nil {
			apiErr.Body = parsed
		}
	}
	return apiErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
