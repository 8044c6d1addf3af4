package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Name of the anti-forgery token header. The portal expects this exact spelling, so the header is stored under this key without canonicalization.
const TokenHeader = "__RequestVerificationToken"

type APIRequest struct {
	// HTTP method as a string (eg "PATCH"). Empty means GET.
	Method string

	// Path and raw query relative to the portal host, eg "/_api/contacts(...)?$select=fullname" (required). Sent as-is.
	Path string

	// Optional request body (may be nil).
	Body io.Reader

	// Optional function to return new reader for request body; used for retries and redirects.
	GetBody func() (io.ReadCloser, error)

	// Optional value for the Content-Type header. Sent even when there is no body.
	ContentType string

	// Optional HTTP headers (field may be nil). Only the first value will be included for each header key ("Set" behavior).
	Headers http.Header
}

// Initializes a new request struct, with Headers ready to be manipulated.
//
// If body implements [io.Seeker] it is made re-readable through GetBody.
func NewAPIRequest(method, path string, body io.Reader) *APIRequest {
	req := APIRequest{
		Method:  method,
		Path:    path,
		Headers: http.Header{},
	}
	if body != nil {
		switch v := body.(type) {
		case *bytes.Buffer, *bytes.Reader, *strings.Reader:
			// http.NewRequestWithContext sets GetBody and ContentLength for these
			req.Body = body
		case io.Seeker:
			req.Body = io.NopCloser(body)
			req.GetBody = func() (io.ReadCloser, error) {
				if _, err := v.Seek(0, io.SeekStart); err != nil {
					return nil, err
				}
				return io.NopCloser(body), nil
			}
		default:
			req.Body = body
		}
	}
	return &req
}

// Creates an [http.Request] for this API request.
//
// `host` is the portal origin: scheme, hostname, port, and optionally a path prefix (required).
//
// `clientHeaders`, if provided, are client-level defaults; request-level headers take priority.
func (r *APIRequest) HTTPRequest(ctx context.Context, host string, clientHeaders http.Header) (*http.Request, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("empty hostname in host URL")
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("empty scheme in host URL")
	}
	if !strings.HasPrefix(r.Path, "/") {
		return nil, fmt.Errorf("request path must start with '/': %q", r.Path)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(host, "/")+r.Path, r.Body)
	if err != nil {
		return nil, err
	}
	if r.GetBody != nil {
		httpReq.GetBody = r.GetBody
	}

	// first set default headers...
	setHeaders(httpReq.Header, clientHeaders)
	// ... then request-specific take priority (overwrite)
	setHeaders(httpReq.Header, r.Headers)

	if r.ContentType != "" {
		setHeader(httpReq.Header, "Content-Type", r.ContentType)
	}
	return httpReq, nil
}

// Copies the first value of each src header in to dst. Keys are copied verbatim.
func setHeaders(dst, src http.Header) {
	for k, vals := range src {
		if len(vals) == 0 {
			continue
		}
		setHeader(dst, k, vals[0])
	}
}

// Sets a single header value under the exact key, dropping any existing entry which differs only in casing.
func setHeader(h http.Header, key, val string) {
	for k := range h {
		if strings.EqualFold(k, key) {
			delete(h, k)
		}
	}
	h[key] = []string{val}
}
