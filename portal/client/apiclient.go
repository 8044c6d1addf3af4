package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/carlmjohnson/versioninfo"
)

// General purpose client for portal Web API endpoints.
type APIClient struct {
	// Inner HTTP client. May be customized after the overall [APIClient] struct is created; for example to add retries or a request timeout.
	Client *http.Client

	// Portal origin: scheme, hostname, and port, optionally with a path prefix. This field is required. Its scheme and hostname also form the origin of "@odata.id" references.
	Host string

	// Optional source of anti-forgery tokens. A fresh token is requested for every call to [APIClient.Do]. If nil, no token header is attached.
	Tokens TokenSource

	// Optional check on successful responses. If nil, all 2xx responses are accepted.
	Validator SessionValidator

	// Optional HTTP headers which will be included in all requests (eg, "Cookie"). Only a single value per key is included; request-level headers will override any client-level defaults.
	Headers http.Header

	// Optional logger; defaults to [slog.Default].
	Logger *slog.Logger
}

// Successful API response. The body has already been read in full and closed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Underlying HTTP response, including the final request after any redirects. Body is already consumed.
	HTTP *http.Response
}

// Decodes the response body as JSON.
func (r *Response) JSON(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed decoding JSON response body: %w", err)
	}
	return nil
}

// Creates a simple APIClient for the provided host, with no token source. Uses [http.DefaultClient], sets a default User-Agent, and validates sessions with [LoginRedirectValidator].
func NewAPIClient(host string) *APIClient {
	return &APIClient{
		Client:    http.DefaultClient,
		Host:      host,
		Validator: &LoginRedirectValidator{},
		Headers: http.Header{
			"User-Agent": []string{DefaultUserAgent()},
		},
	}
}

// Creates an APIClient for a signed-in portal session, identified by the browser's cookie header value. Anti-forgery tokens are fetched from the portal with the same HTTP client and session cookie.
func NewPortalClient(httpClient *http.Client, host, cookie string) *APIClient {
	c := NewAPIClient(host)
	if httpClient != nil {
		c.Client = httpClient
	}
	if cookie != "" {
		c.Headers.Set("Cookie", cookie)
	}
	c.Tokens = &PortalTokenSource{
		Client:  c.Client,
		Host:    host,
		Headers: c.Headers,
	}
	return c
}

func DefaultUserAgent() string {
	return "pagesapi/" + versioninfo.Short()
}

func (c *APIClient) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Issues a single authenticated request.
//
// A fresh token is requested first; if that fails a [TokenError] is returned and nothing is sent. The token is stored in req.Headers (created if nil), leaving other headers untouched. Network failures and non-2xx statuses return a [TransportError]. 2xx responses which fail session validation return a [SessionError]. A request which can not be built (bad host or path) is a caller error, returned wrapping [ErrInvalidRequest].
func (c *APIClient) Do(ctx context.Context, req *APIRequest) (*Response, error) {

	httpClient := c.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	if c.Tokens != nil {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			c.logger().Debug("anti-forgery token fetch failed", "method", req.Method, "path", req.Path, "err", err)
			return nil, &TokenError{Wrapped: err}
		}
		if req.Headers == nil {
			req.Headers = http.Header{}
		}
		setHeader(req.Headers, TokenHeader, token)
	}

	httpReq, err := req.HTTPRequest(ctx, c.Host, c.Headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Wrapped: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{
			StatusCode: httpResp.StatusCode,
			Wrapped:    fmt.Errorf("reading response body: %w", err),
		}
	}
	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		HTTP:       httpResp,
	}
	c.logger().Debug("portal API response", "method", req.Method, "path", req.Path, "status", resp.StatusCode, "size", len(body))

	if !(resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return nil, transportErrorFromResponse(resp)
	}

	if c.Validator != nil {
		if err := c.Validator.ValidateSession(resp); err != nil {
			c.logger().Warn("portal session validation failed", "method", req.Method, "path", req.Path, "err", err)
			return nil, &SessionError{
				StatusCode: resp.StatusCode,
				Response:   resp,
				Wrapped:    err,
			}
		}
	}
	return resp, nil
}

// Returns a shallow copy of the APIClient which attaches no anti-forgery token and skips session validation. Client-level headers (including any session cookie) are kept.
func (c *APIClient) WithoutAuth() *APIClient {
	out := APIClient{
		Client:  c.Client,
		Host:    c.Host,
		Headers: c.Headers.Clone(),
		Logger:  c.Logger,
	}
	return &out
}

// Resolves a download file name from the response's Content-Disposition header with [ResolveFilename], logging any decode anomaly with the client's logger.
func (c *APIClient) ResolveFilename(resp *Response, defaultName string) string {
	return ResolveFilenameLogged(c.logger(), resp.Header.Get("Content-Disposition"), defaultName)
}
