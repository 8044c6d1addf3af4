package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Default path of the portal endpoint which renders the anti-forgery token as a hidden form input.
const DefaultTokenPath = "/_layout/tokenhtml"

// Source of anti-forgery tokens for [APIClient]. Tokens are requested once per API call and never cached by the client.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// A fixed token. Mostly useful for tests, or when the token was obtained out of band.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", errors.New("empty static token")
	}
	return string(t), nil
}

// Adapter to allow the use of ordinary functions as a [TokenSource].
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Fetches a fresh token from the portal's token endpoint on every call.
//
// The endpoint returns a small HTML fragment containing an <input name="__RequestVerificationToken" value="..."> element. The token is bound to the session cookie, so Headers should carry the same "Cookie" value used for API calls.
type PortalTokenSource struct {
	// Defaults to [http.DefaultClient]
	Client *http.Client

	// Portal origin (required)
	Host string

	// Defaults to [DefaultTokenPath]
	Path string

	// Optional headers included in the token request (eg, "Cookie", "User-Agent")
	Headers http.Header
}

func (s *PortalTokenSource) Token(ctx context.Context) (string, error) {
	c := s.Client
	if c == nil {
		c = http.DefaultClient
	}
	p := s.Path
	if p == "" {
		p = DefaultTokenPath
	}
	if s.Host == "" {
		return "", errors.New("token source has no portal host configured")
	}

	// cache-busting query param, as the endpoint may otherwise be served from an intermediate cache
	u := strings.TrimSuffix(s.Host, "/") + p + "?_=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	setHeaders(req.Header, s.Headers)

	resp, err := c.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if !(resp.StatusCode >= 200 && resp.StatusCode < 300) {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	return ParseTokenHTML(io.LimitReader(resp.Body, 1<<20))
}

// Extracts the anti-forgery token value from an HTML document or fragment.
func ParseTokenHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing token HTML: %w", err)
	}
	tok, ok := findTokenInput(doc)
	if !ok {
		return "", errors.New("no anti-forgery token input found in token HTML")
	}
	if tok == "" {
		return "", errors.New("anti-forgery token input has empty value")
	}
	return tok, nil
}

func findTokenInput(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "input" {
		var name, value string
		for _, attr := range n.Attr {
			switch attr.Key {
			case "name":
				name = attr.Val
			case "value":
				value = attr.Val
			}
		}
		if name == TokenHeader {
			return value, true
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if v, ok := findTokenInput(child); ok {
			return v, true
		}
	}
	return "", false
}
