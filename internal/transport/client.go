package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ivanoskov/fintracker/internal/logger"
)

const (
	defaultDialTimeout     = 5 * time.Second
	defaultTLSHandshake    = 5 * time.Second
	defaultIdleConnTimeout = 30 * time.Second
	defaultClientTimeout   = 10 * time.Second

	maxErrorBody = 64 * 1024
)

// Client issues one request per call to the backend. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL. A nil httpClient selects a tuned default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = BuildHTTPClient(defaultClientTimeout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BuildHTTPClient returns an HTTP client with bounded dial and handshake times.
func BuildHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

type requestOptions struct {
	query  url.Values
	header http.Header
}

// Option customizes a single request.
type Option func(*requestOptions)

// WithQuery merges the given values into the request query string.
func WithQuery(values url.Values) Option {
	return func(o *requestOptions) {
		for k, vs := range values {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// WithChatID identifies the caller by chat id.
func WithChatID(chatID int64) Option {
	return func(o *requestOptions) {
		if chatID != 0 {
			o.query.Set("chat_id", strconv.FormatInt(chatID, 10))
		}
	}
}

// WithBearer attaches an Authorization bearer token.
func WithBearer(token string) Option {
	return func(o *requestOptions) {
		if token != "" {
			o.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// Request performs method on endpoint with an optional JSON payload and
// returns the raw JSON body of a 2xx response. An empty 2xx body yields nil.
// Failures are always one of *NetworkError, *ProtocolError or *UnexpectedError.
func (c *Client) Request(ctx context.Context, method, endpoint string, payload any, opts ...Option) (json.RawMessage, error) {
	start := time.Now()
	raw, status, err := c.do(ctx, method, endpoint, payload, opts)

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("http_status", status),
		slog.Duration("duration", logger.Took(start)),
		slog.String("status", logger.Status(err)),
	}
	if err != nil {
		attrs = append(attrs, logger.Err(err))
		logger.Warn(ctx, "transport", "backend.request", attrs...)
		return nil, err
	}
	logger.Debug(ctx, "transport", "backend.request", attrs...)
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, opts []Option) (json.RawMessage, int, error) {
	o := requestOptions{query: url.Values{}, header: http.Header{}}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return nil, 0, &UnexpectedError{Method: method, Endpoint: endpoint, Err: err}
	}
	if len(o.query) > 0 {
		q := u.Query()
		for k, vs := range o.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, &UnexpectedError{Method: method, Endpoint: endpoint, Err: fmt.Errorf("encode payload: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, 0, &UnexpectedError{Method: method, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid := logger.RIDFrom(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	for k, vs := range o.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isNetworkFailure(err) || errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, &NetworkError{Method: method, Endpoint: endpoint, Err: err}
		}
		return nil, 0, &UnexpectedError{Method: method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, resp.StatusCode, &NetworkError{Method: method, Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		pe := &ProtocolError{Method: method, Endpoint: endpoint, Status: resp.StatusCode}
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		pe.Body = data
		var parsed map[string]any
		if json.Unmarshal(data, &parsed) == nil {
			parseErrorBody(parsed, pe)
		}
		return nil, resp.StatusCode, pe
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, resp.StatusCode, nil
	}
	if !json.Valid(data) {
		return nil, resp.StatusCode, &UnexpectedError{Method: method, Endpoint: endpoint, Err: errors.New("response body is not valid JSON")}
	}
	return json.RawMessage(data), resp.StatusCode, nil
}
