package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nickyhof/TableDB/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHTTPTestServer(t *testing.T, opts ...ServerOption) *httptest.Server {
	t.Helper()
	server := NewServer(openTestInstance(t), defaultIdentity, opts...)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postExec(t *testing.T, ts *httptest.Server, token, body string) (int, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/exec", strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var resp Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	return res.StatusCode, resp
}

func TestHTTPHealthz(t *testing.T) {
	ts := newHTTPTestServer(t)

	res, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHTTPExec(t *testing.T) {
	ts := newHTTPTestServer(t)

	status, resp := postExec(t, ts, "", createUsers)
	require.Equal(t, http.StatusOK, status, resp.Error)
	assert.Equal(t, "commit", resp.Type)

	status, _ = postExec(t, ts, "", `{"op":"insert","table":"users","fields":{"id":1,"name":"Alice"}}`)
	require.Equal(t, http.StatusOK, status)

	status, resp = postExec(t, ts, "", `{"op":"avg","table":"users","column":"id"}`)
	require.Equal(t, http.StatusOK, status)
	var agg db.AggregateResult
	require.NoError(t, json.Unmarshal(resp.Result, &agg))
	assert.Equal(t, 1.0, agg.Value.Float64())

	res, err := ts.Client().Get(ts.URL + "/v1/tables")
	require.NoError(t, err)
	defer res.Body.Close()
	var tables Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&tables))
	assert.JSONEq(t, `{"names":["users"]}`, string(tables.Result))
}

func TestHTTPErrorStatus(t *testing.T) {
	ts := newHTTPTestServer(t)
	_, _ = postExec(t, ts, "", createUsers)

	tests := []struct {
		body string
		want int
	}{
		{`not json`, http.StatusBadRequest},
		{`{"op":"drop","table":"users"}`, http.StatusBadRequest},
		{`{"op":"get","table":"users","id":5}`, http.StatusNotFound},
		{`{"op":"select","table":"missing"}`, http.StatusNotFound},
		{createUsers, http.StatusConflict},
		{`{"op":"insert","table":"users","fields":{"name":"NoID"}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		status, resp := postExec(t, ts, "", tt.body)
		assert.Equal(t, tt.want, status, tt.body)
		assert.False(t, resp.Success, tt.body)
		assert.NotEmpty(t, resp.Error, tt.body)
	}
}

func TestHTTPBearerAuth(t *testing.T) {
	secret := "http-secret"
	ts := newHTTPTestServer(t, authOption(secret))

	status, resp := postExec(t, ts, "", `{"op":"tables"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, resp.Error, "authentication required")

	status, _ = postExec(t, ts, "bogus", `{"op":"tables"}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	token := createTestJWT(t, secret, userClaims("HTTP User", "http@example.com", time.Hour))
	status, resp = postExec(t, ts, token, `{"op":"snapshot","message":"over http"}`)
	require.Equal(t, http.StatusOK, status, resp.Error)

	var cr db.CommitResult
	require.NoError(t, json.Unmarshal(resp.Result, &cr))
	assert.Equal(t, "HTTP User <http@example.com>", cr.Transaction.Author)

	res, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
