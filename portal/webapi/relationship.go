package webapi

import (
	"context"
	"net/http"

	"github.com/portalcraft/pagesapi/portal/syntax"
)

// Reference to a target record, as used in "@odata.id" values.
func (c *Client) recordRef(set syntax.EntitySet, id syntax.RecordID) (string, error) {
	origin, err := c.origin()
	if err != nil {
		return "", err
	}
	return origin + recordPath(set, id), nil
}

// Links the target record to the source record through a navigation property (relationship).
func (c *Client) AssociateEntity(ctx context.Context, src syntax.EntitySet, srcID syntax.RecordID, rel syntax.LogicalName, tgt syntax.EntitySet, tgtID syntax.RecordID) error {
	ref, err := c.recordRef(tgt, tgtID)
	if err != nil {
		return err
	}
	body := map[string]string{"@odata.id": ref}
	req, err := jsonRequest(http.MethodPost, recordPath(src, srcID)+"/"+rel.String()+"/$ref", body)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, req)
	return err
}

// Removes a link created by [Client.AssociateEntity].
func (c *Client) DisassociateEntity(ctx context.Context, src syntax.EntitySet, srcID syntax.RecordID, rel syntax.LogicalName, tgt syntax.EntitySet, tgtID syntax.RecordID) error {
	ref, err := c.recordRef(tgt, tgtID)
	if err != nil {
		return err
	}
	req, err := jsonRequest(http.MethodDelete, recordPath(src, srcID)+"/"+rel.String()+"/$ref?$id="+ref, nil)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, req)
	return err
}
