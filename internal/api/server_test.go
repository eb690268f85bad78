package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/stockade/internal/clock"
	"grimm.is/stockade/internal/logging"
	"grimm.is/stockade/internal/rules"
	"grimm.is/stockade/internal/store"
)

var apiTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New("", clock.NewMockClock(apiTime))
	require.NoError(t, err)

	srv, err := NewServer(ServerOptions{
		Store:  st,
		Clock:  clock.NewMockClock(apiTime),
		Logger: logging.New(logging.Config{Level: logging.LevelError, Output: io.Discard}),
	})
	require.NoError(t, err)
	return srv, st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validRequest() map[string]any {
	return map[string]any{
		"name":               "allow-web",
		"action":             "allow",
		"protocol":           "tcp",
		"sourceAddress":      "*",
		"destinationAddress": "10.0.0.5",
		"destinationPort":    "80,443",
		"priority":           10,
		"enabled":            true,
	}
}

func TestCreateRule_Valid(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doJSON(t, srv.Handler(), "POST", "/api/rules", validRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created rules.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, rules.ActionAllow, created.Action)
	assert.Equal(t, 1, st.Count())
}

func TestCreateRule_ValidationErrors(t *testing.T) {
	srv, st := newTestServer(t)

	body := validRequest()
	body["name"] = ""
	body["sourceAddress"] = "999.1.1.1"

	rec := doJSON(t, srv.Handler(), "POST", "/api/rules", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Errors rules.FieldErrors `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "name", resp.Errors[0].Field)
	assert.Equal(t, "Rule name is required", resp.Errors[0].Message)
	assert.Equal(t, "sourceAddress", resp.Errors[1].Field)
	assert.Equal(t, "Invalid IP address format", resp.Errors[1].Message)
	assert.Equal(t, 0, st.Count())
}

func TestCreateRule_BadEnum(t *testing.T) {
	srv, _ := newTestServer(t)

	body := validRequest()
	body["action"] = "reject"

	rec := doJSON(t, srv.Handler(), "POST", "/api/rules", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "action")
}

func TestCreateRule_BadJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/rules", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRule_LifecycleAndNotFound(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doJSON(t, srv.Handler(), "POST", "/api/rules", validRequest())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created rules.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	body := validRequest()
	body["name"] = "renamed"
	rec = doJSON(t, srv.Handler(), "PUT", "/api/rules/"+created.ID, body)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := st.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	rec = doJSON(t, srv.Handler(), "PUT", "/api/rules/missing", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleAndDeleteRule(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doJSON(t, srv.Handler(), "POST", "/api/rules", validRequest())
	var created rules.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, srv.Handler(), "POST", "/api/rules/"+created.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled rules.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.False(t, toggled.Enabled)

	rec = doJSON(t, srv.Handler(), "DELETE", "/api/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, st.Count())

	rec = doJSON(t, srv.Handler(), "DELETE", "/api/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportScript(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), "POST", "/api/rules", validRequest())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv.Handler(), "GET", "/api/export/script", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	script := rec.Body.String()
	assert.Contains(t, script, "#!/bin/sh")
	assert.Contains(t, script, "# Rule 1: allow-web")
	assert.Contains(t, script, "-m multiport --dports 80,443 -j ACCEPT")
}

func TestExportRules_ImportRoundTrip(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doJSON(t, srv.Handler(), "POST", "/api/rules", validRequest())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv.Handler(), "GET", "/api/export/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.Bytes()

	req := httptest.NewRequest("POST", "/api/import", bytes.NewReader(exported))
	importRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(importRec, req)
	require.Equal(t, http.StatusOK, importRec.Code, importRec.Body.String())

	var resp importResponse
	require.NoError(t, json.Unmarshal(importRec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 2, st.Count(), "import merges, never replaces")
}

func TestImport_PartialDocument(t *testing.T) {
	srv, st := newTestServer(t)

	payload := `{"version":"1.0","rules":[
		{"id":"a","name":"good","action":"allow","protocol":"tcp",
		 "sourceAddress":"*","destinationAddress":"*",
		 "createdAt":"2025-05-01T00:00:00Z","updatedAt":"2025-05-01T00:00:00Z"},
		{"id":"b","name":"no-action","protocol":"tcp",
		 "sourceAddress":"*","destinationAddress":"*"}
	]}`

	req := httptest.NewRequest("POST", "/api/import", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Skipped, 1)
	assert.Equal(t, 1, st.Count())
}

func TestImport_MalformedDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/import", strings.NewReader(`"nope"`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
