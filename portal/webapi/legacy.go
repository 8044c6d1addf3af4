package webapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/portalcraft/pagesapi/portal/client"
)

// Calls the legacy portal JSON endpoint ("/<lang>/json/"), decoding the response in to out (if not nil).
//
// This endpoint is anonymous: no anti-forgery token is fetched and the response is not checked for a sign-in page. Args are query-encoded with sorted keys, and the query always ends with "&".
func (c *Client) GetJSONData(ctx context.Context, key string, args map[string]string, out any) error {
	lang := c.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	params := url.Values{}
	for k, v := range args {
		params.Set(k, v)
	}
	// every parameter, including the request key, is followed by "&"
	path := "/" + lang.String() + "/json/?request=" + url.QueryEscape(key) + "&"
	if len(params) > 0 {
		path += params.Encode() + "&"
	}

	req := client.NewAPIRequest(http.MethodGet, path, nil)
	req.ContentType = "application/json"
	resp, err := c.API.WithoutAuth().Do(ctx, req)
	if err != nil {
		return err
	}
	return decodeOptional(resp, out)
}
