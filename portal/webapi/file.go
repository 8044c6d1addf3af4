package webapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/portalcraft/pagesapi/portal/client"
	"github.com/portalcraft/pagesapi/portal/syntax"
)

// File column content, as returned by [Client.DownloadFile].
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Uploads content to a file or image column of a record.
//
// The file name is sent as the "x-ms-file-name" query parameter.
func (c *Client) UploadFile(ctx context.Context, set syntax.EntitySet, id syntax.RecordID, column syntax.LogicalName, fileName string, content io.Reader) error {
	if fileName == "" {
		return errors.New("upload requires a file name")
	}
	if content == nil {
		return errors.New("upload requires content")
	}

	// sized readers give the request a Content-Length; anything else is buffered
	switch content.(type) {
	case *bytes.Reader, *bytes.Buffer, *strings.Reader:
	default:
		b, err := io.ReadAll(content)
		if err != nil {
			return fmt.Errorf("failed reading upload content: %w", err)
		}
		content = bytes.NewReader(b)
	}

	path := recordPath(set, id) + "/" + column.String() + "?x-ms-file-name=" + url.QueryEscape(fileName)
	req := client.NewAPIRequest(http.MethodPut, path, content)
	req.ContentType = "application/octet-stream"
	_, err := c.API.Do(ctx, req)
	return err
}

// Fetches the content of a file or image column.
//
// The file name comes from the response Content-Disposition header; if it is missing or can not be parsed, defaultName is used (or [DefaultDownloadName] if that is empty).
func (c *Client) DownloadFile(ctx context.Context, set syntax.EntitySet, id syntax.RecordID, column syntax.LogicalName, defaultName string) (*File, error) {
	if defaultName == "" {
		defaultName = DefaultDownloadName
	}
	req := client.NewAPIRequest(http.MethodGet, recordPath(set, id)+"/"+column.String()+"/$value", nil)
	req.ContentType = "application/json"

	resp, err := c.API.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	f := &File{
		Name:        c.API.ResolveFilename(resp, defaultName),
		ContentType: resp.Header.Get("Content-Type"),
		Content:     resp.Body,
	}
	c.logger().Debug("file retrieved", "entity_set", set, "column", column, "name", f.Name, "size", len(f.Content))
	return f, nil
}
