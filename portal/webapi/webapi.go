// Package webapi provides typed helpers for portal Web API operations: record CRUD, column updates, relationships, file columns, and the legacy JSON endpoint.
//
// Every helper builds a single [client.APIRequest] and sends it with [client.APIClient.Do], so errors are the same [client.TokenError], [client.TransportError], and [client.SessionError] types.
package webapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/portalcraft/pagesapi/portal/client"
	"github.com/portalcraft/pagesapi/portal/syntax"
)

const (
	DefaultLanguage           = syntax.Language("en-US")
	DefaultCacheRefreshColumn = syntax.LogicalName("mnp_refreshcache")
	DefaultDownloadName       = "file.bin"

	// layout matching JavaScript's Date.toISOString()
	isoTimestampLayout = "2006-01-02T15:04:05.000Z"
)

type Client struct {
	API *client.APIClient

	// Language segment for the legacy JSON endpoint. Defaults to [DefaultLanguage].
	Language syntax.Language

	// Column written by [Client.RefreshEntityCache] when none is given. Defaults to [DefaultCacheRefreshColumn].
	CacheRefreshColumn syntax.LogicalName

	// Optional logger; defaults to [slog.Default].
	Logger *slog.Logger

	// Optional clock, for tests. Defaults to [time.Now].
	Now func() time.Time
}

func NewClient(api *client.APIClient) *Client {
	return &Client{
		API:                api,
		Language:           DefaultLanguage,
		CacheRefreshColumn: DefaultCacheRefreshColumn,
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Scheme, hostname and port of the API host, without any path. Used to build "@odata.id" references.
func (c *Client) origin() (string, error) {
	u, err := url.Parse(c.API.Host)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("API host is not an absolute URL: %q", c.API.Host)
	}
	return u.Scheme + "://" + u.Host, nil
}

func recordPath(set syntax.EntitySet, id syntax.RecordID) string {
	return "/_api/" + set.String() + "(" + id.String() + ")"
}

// Encodes a request body the way browsers serialize JSON: no HTML escaping, no trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed encoding JSON request body: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Builds a request with "application/json" content type, and an optional JSON body.
func jsonRequest(method, path string, body any) (*client.APIRequest, error) {
	var r io.Reader
	if body != nil {
		b, err := marshalJSON(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req := client.NewAPIRequest(method, path, r)
	req.ContentType = "application/json"
	req.Headers.Set("Accept", "application/json")
	return req, nil
}

func decodeOptional(resp *client.Response, out any) error {
	if out == nil || len(resp.Body) == 0 || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return resp.JSON(out)
}
