package webapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/portalcraft/pagesapi/portal/syntax"
)

// Fetches a single record, decoding the JSON response in to out (if not nil).
//
// The "$select" query parameter is always sent; with no attributes it is empty, and the portal returns the columns allowed by table permissions.
func (c *Client) RetrieveEntity(ctx context.Context, set syntax.EntitySet, id syntax.RecordID, attributes []syntax.LogicalName, out any) error {
	cols := make([]string, len(attributes))
	for i, a := range attributes {
		cols[i] = a.String()
	}
	req, err := jsonRequest(http.MethodGet, recordPath(set, id)+"?$select="+strings.Join(cols, ","), nil)
	if err != nil {
		return err
	}
	resp, err := c.API.Do(ctx, req)
	if err != nil {
		return err
	}
	return decodeOptional(resp, out)
}

// Creates a record and returns its ID, taken from the "entityid" response header (or "OData-EntityId" as a fallback).
func (c *Client) CreateEntity(ctx context.Context, set syntax.EntitySet, data any) (syntax.RecordID, error) {
	req, err := jsonRequest(http.MethodPost, "/_api/"+set.String(), data)
	if err != nil {
		return "", err
	}
	resp, err := c.API.Do(ctx, req)
	if err != nil {
		return "", err
	}

	raw := resp.Header.Get("entityid")
	if raw == "" {
		raw = entityIDFromURL(resp.Header.Get("OData-EntityId"))
	}
	if raw == "" {
		return "", fmt.Errorf("create response for %s has no entityid header", set)
	}
	id, err := syntax.ParseRecordID(raw)
	if err != nil {
		return "", fmt.Errorf("create response for %s: %w", set, err)
	}
	c.logger().Debug("created record", "entity_set", set, "entityid", id)
	return id, nil
}

// Extracts the key from an entity URL like "https://host/_api/contacts(<id>)".
func entityIDFromURL(u string) string {
	start := strings.LastIndex(u, "(")
	end := strings.LastIndex(u, ")")
	if start == -1 || end <= start+1 {
		return ""
	}
	return u[start+1 : end]
}

// Updates the given columns of a record (HTTP PATCH).
func (c *Client) UpdateEntity(ctx context.Context, set syntax.EntitySet, id syntax.RecordID, data any) error {
	req, err := jsonRequest(http.MethodPatch, recordPath(set, id), data)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, req)
	return err
}

// Sets a single column of a record (HTTP PUT to the column path, with a {"value": ...} body).
func (c *Client) UpdateEntityColumn(ctx context.Context, set syntax.EntitySet, id syntax.RecordID, column syntax.LogicalName, value any) error {
	req, err := jsonRequest(http.MethodPut, recordPath(set, id)+"/"+column.String(), map[string]any{"value": value})
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, req)
	return err
}

// Writes the current time to a datetime column of the record, which makes the portal drop and reload its cached copy of the record.
//
// If column is empty, [Client.CacheRefreshColumn] is used. The table needs such a column, and table permissions allowing the update.
func (c *Client) RefreshEntityCache(ctx context.Context, set syntax.EntitySet, id syntax.RecordID, column syntax.LogicalName) error {
	if column == "" {
		column = c.CacheRefreshColumn
	}
	if column == "" {
		column = DefaultCacheRefreshColumn
	}
	return c.UpdateEntityColumn(ctx, set, id, column, c.now().UTC().Format(isoTimestampLayout))
}

func (c *Client) DeleteEntity(ctx context.Context, set syntax.EntitySet, id syntax.RecordID) error {
	req, err := jsonRequest(http.MethodDelete, recordPath(set, id), nil)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, req)
	return err
}

// Clears a single column value of a record.
func (c *Client) DeleteEntityAttribute(ctx context.Context, set syntax.EntitySet, id syntax.RecordID, attribute syntax.LogicalName) error {
	req, err := jsonRequest(http.MethodDelete, recordPath(set, id)+"/"+attribute.String(), nil)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, req)
	return err
}
