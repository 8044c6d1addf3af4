package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/portalcraft/pagesapi/portal/client"
	"github.com/portalcraft/pagesapi/portal/webapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testContactID = "5b8d3e6c-1f2a-4c3b-9d4e-0a1b2c3d4e5f"
	testAccountID = "0f9e8d7c-6b5a-4948-8372-615049382716"
	missingID     = "00000000-0000-0000-0000-000000000404"
)

type portalLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *portalLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func fakePortal(log *portalLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == client.DefaultTokenPath {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintln(w, `<input name="__RequestVerificationToken" type="hidden" value="tok-batch" />`)
			return
		}
		if r.Header.Get(client.TokenHeader) != "tok-batch" {
			http.Error(w, "missing token", http.StatusForbidden)
			return
		}
		body, _ := io.ReadAll(r.Body)
		log.add(r.Method + " " + r.RequestURI + " " + string(body))

		if strings.Contains(r.URL.Path, missingID) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"error":{"code":"0x80040217","message":"contact With Id = 404 Does Not Exist"}}`)
			return
		}
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintln(w, `{"fullname":"Ada Lovelace"}`)
		case http.MethodPost:
			if r.URL.Path == "/_api/contacts" {
				w.Header().Set("entityid", testContactID)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func testPortalClient(t *testing.T, log *portalLog) *webapi.Client {
	srv := httptest.NewServer(fakePortal(log))
	t.Cleanup(srv.Close)
	return webapi.NewClient(client.NewPortalClient(srv.Client(), srv.URL, "session=abc"))
}

func TestExecuteBatch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	log := &portalLog{}
	c := testPortalClient(t, log)

	input := strings.Join([]string{
		`{"op":"create","entity_set":"contacts","data":{"firstname":"Ada"}}`,
		``,
		`{"op":"update","entity_set":"contacts","id":"` + testContactID + `","data":{"jobtitle":"Analyst"}}`,
		`{"op":"set-column","entity_set":"contacts","id":"` + testContactID + `","column":"jobtitle","value":"Engineer"}`,
		`{"op":"get","entity_set":"contacts","id":"` + testContactID + `","select":["fullname"]}`,
		`{"op":"delete","entity_set":"contacts","id":"` + missingID + `"}`,
		`{"op":"associate","entity_set":"accounts","id":"` + testAccountID + `","relationship":"contact_customer_accounts","target_set":"contacts","target_id":"` + testContactID + `"}`,
		`{"op":"explode","entity_set":"contacts"}`,
		`not json`,
		`{"op":"update","entity_set":"contacts","id":"not-a-guid","data":{}}`,
	}, "\n")

	results, err := executeBatch(ctx, c, strings.NewReader(input), 3, 0)
	require.NoError(err)
	require.Len(results, 9)

	assert.Equal(BatchResult{Line: 1, Op: "create", OK: true, ID: testContactID}, results[0])
	assert.Equal(3, results[1].Line)
	assert.True(results[1].OK)
	assert.True(results[2].OK)

	assert.True(results[3].OK)
	assert.JSONEq(`{"fullname":"Ada Lovelace"}`, string(results[3].Record))

	assert.Equal(6, results[4].Line)
	assert.False(results[4].OK)
	assert.Contains(results[4].Error, "404")

	assert.True(results[5].OK)
	assert.False(results[6].OK)
	assert.Contains(results[6].Error, "unsupported batch op")
	assert.False(results[7].OK)
	assert.Contains(results[7].Error, "invalid batch line")
	assert.False(results[8].OK)

	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Contains(log.lines, `POST /_api/contacts {"firstname":"Ada"}`)
	assert.Contains(log.lines, `PUT /_api/contacts(`+testContactID+`)/jobtitle {"value":"Engineer"}`)
	assert.Contains(log.lines, `GET /_api/contacts(`+testContactID+`)?$select=fullname `)
	assert.Len(log.lines, 6)
}

func TestExecuteBatchCancelled(t *testing.T) {
	assert := assert.New(t)

	log := &portalLog{}
	c := testPortalClient(t, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := executeBatch(ctx, c, strings.NewReader(`{"op":"delete","entity_set":"contacts","id":"`+testContactID+`"}`), 1, 1)
	assert.ErrorIs(err, context.Canceled)
	assert.Empty(log.lines)
}

func TestBatchResultJSON(t *testing.T) {
	assert := assert.New(t)

	b, err := json.Marshal(BatchResult{Line: 2, Op: "delete", Error: "boom"})
	assert.NoError(err)
	assert.Equal(`{"line":2,"op":"delete","ok":false,"error":"boom"}`, string(b))
}
