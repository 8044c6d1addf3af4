package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenHTML(t *testing.T) {
	assert := assert.New(t)

	testVec := []struct {
		doc    string
		expect string
	}{
		{`<input name="__RequestVerificationToken" type="hidden" value="abc123" />`, "abc123"},
		{`<html><body><form><input type="text" name="other" value="x"><input name="__RequestVerificationToken" type="hidden" value="tok-2"></form></body></html>`, "tok-2"},
		{"\n<div>\n  <input type='hidden' value='q/Z+9=' name='__RequestVerificationToken'>\n</div>", "q/Z+9="},
	}
	for _, tv := range testVec {
		tok, err := ParseTokenHTML(strings.NewReader(tv.doc))
		assert.NoError(err, tv.doc)
		assert.Equal(tv.expect, tok)
	}

	for _, doc := range []string{
		``,
		`<p>sign in</p>`,
		`<input name="__RequestVerificationToken" type="hidden" value="" />`,
		`<input name="__requestverificationtoken" value="wrong-case" />`,
	} {
		_, err := ParseTokenHTML(strings.NewReader(doc))
		assert.Error(err, doc)
	}
}

func TestStaticToken(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tok, err := StaticToken("abc").Token(ctx)
	assert.NoError(err)
	assert.Equal("abc", tok)

	_, err = StaticToken("").Token(ctx)
	assert.Error(err)
}

func portalHandler(tokenCalls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/SignIn" {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintln(w, "<p>sign in</p>")
			return
		}
		if r.Header.Get("Cookie") != "session=s1" {
			http.Redirect(w, r, "/SignIn", http.StatusFound)
			return
		}
		switch r.URL.Path {
		case DefaultTokenPath:
			n := atomic.AddInt32(tokenCalls, 1)
			if r.URL.Query().Get("_") == "" {
				http.Error(w, "missing cache buster", http.StatusBadRequest)
				return
			}
			fmt.Fprintf(w, `<input name="__RequestVerificationToken" type="hidden" value="token-%d" />`, n)
		case "/_api/contacts":
			if !strings.HasPrefix(r.Header.Get(TokenHeader), "token-") {
				http.Error(w, "missing token", http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, "{\"token\":%q}\n", r.Header.Get(TokenHeader))
		default:
			http.NotFound(w, r)
		}
	}
}

func TestPortalTokenSource(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	var tokenCalls int32
	srv := httptest.NewServer(portalHandler(&tokenCalls))
	defer srv.Close()

	c := NewPortalClient(srv.Client(), srv.URL, "session=s1")

	// every call fetches a fresh token
	for i := 1; i <= 2; i++ {
		resp, err := c.Do(ctx, NewAPIRequest(http.MethodGet, "/_api/contacts", nil))
		require.NoError(err)
		var out map[string]string
		require.NoError(resp.JSON(&out))
		assert.Equal(fmt.Sprintf("token-%d", i), out["token"])
	}
	assert.Equal(int32(2), atomic.LoadInt32(&tokenCalls))
}

func TestPortalTokenSourceFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var tokenCalls int32
	srv := httptest.NewServer(portalHandler(&tokenCalls))
	defer srv.Close()

	// no session cookie: token endpoint redirects to the sign-in page, which has no token
	c := NewPortalClient(srv.Client(), srv.URL, "")
	_, err := c.Do(ctx, NewAPIRequest(http.MethodGet, "/_api/contacts", nil))
	var te *TokenError
	assert.ErrorAs(err, &te)
	assert.ErrorIs(err, ErrTokenUnavailable)
	assert.Equal(int32(0), atomic.LoadInt32(&tokenCalls))

	// token endpoint error status
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv2.Close()
	ts := &PortalTokenSource{Client: srv2.Client(), Host: srv2.URL}
	_, err = ts.Token(ctx)
	assert.Error(err)
	assert.Contains(err.Error(), "HTTP 503")

	// missing host
	_, err = (&PortalTokenSource{}).Token(ctx)
	assert.Error(err)
	assert.False(errors.Is(err, ErrTransport))
}
