package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/alfredjeanlab/flowview/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	rawPath     string // URL-encoded path (for testing PathEscape)
	query       string
	body        string
	contentType string
	auth        string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.rawPath = r.URL.RawPath
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL+DefaultBasePath, "")
	return c, srv
}

// --- GetTask ---

func TestHTTPClient_GetTask(t *testing.T) {
	h := &testHandler{
		responseBody: `{
			"code": 0,
			"message": "success",
			"timestamp": 1715000000,
			"data": {
				"name": "build-1",
				"state": "running",
				"count": 3,
				"env": {"GOOS": "linux", "CGO_ENABLED": "0"},
				"time": {"start": "2024-05-06 10:00:00"}
			}
		}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	task, err := c.GetTask(context.Background(), "build-1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if h.method != http.MethodGet {
		t.Errorf("method = %q, want GET", h.method)
	}
	if h.path != "/api/v1/task/build-1" {
		t.Errorf("path = %q, want /api/v1/task/build-1", h.path)
	}
	if task.Name != "build-1" || task.State != model.StateRunning || task.Count != 3 {
		t.Errorf("task = %+v", task)
	}
	if len(task.Env) != 2 || task.Env[0].Name != "CGO_ENABLED" {
		t.Errorf("env = %+v, want sorted map entries", task.Env)
	}
	if task.Time == nil || task.Time.Start == "" {
		t.Error("task.Time not decoded")
	}
}

func TestHTTPClient_GetTask_PathEscape(t *testing.T) {
	h := &testHandler{responseBody: `{"code":0,"data":{"name":"a/b"}}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if _, err := c.GetTask(context.Background(), "a/b"); err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if h.rawPath != "/api/v1/task/a%2Fb" {
		t.Errorf("rawPath = %q, want /api/v1/task/a%%2Fb", h.rawPath)
	}
}

func TestHTTPClient_GetTask_NoData(t *testing.T) {
	h := &testHandler{responseBody: `{"code":1003,"message":"task does not exist"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.GetTask(context.Background(), "ghost")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != model.CodeNoData || apiErr.StatusCode != http.StatusOK {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.Message != "task does not exist" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

// --- GetStep ---

func TestHTTPClient_GetStep(t *testing.T) {
	h := &testHandler{
		responseBody: `{"code":0,"data":{"name":"compile","state":"failed","code":2,"message":"exit status 2","type":"bash","content":"make","depends":["fetch"]}}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	step, err := c.GetStep(context.Background(), "build-1", "compile")
	if err != nil {
		t.Fatalf("GetStep() error = %v", err)
	}
	if h.path != "/api/v1/task/build-1/step/compile" {
		t.Errorf("path = %q", h.path)
	}
	if step.State != model.StateFailed || step.Code == nil || *step.Code != 2 {
		t.Errorf("step = %+v", step)
	}
	if len(step.Depends) != 1 || step.Depends[0] != "fetch" {
		t.Errorf("depends = %v", step.Depends)
	}
}

// --- Actions ---

func TestHTTPClient_ManageStep(t *testing.T) {
	h := &testHandler{responseBody: `{"code":0,"message":"success"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.ManageStep(context.Background(), "build-1", "compile", ActionPause); err != nil {
		t.Fatalf("ManageStep() error = %v", err)
	}
	if h.method != http.MethodPut {
		t.Errorf("method = %q, want PUT", h.method)
	}
	if h.path != "/api/v1/task/build-1/step/compile" {
		t.Errorf("path = %q", h.path)
	}
	if h.query != "action=pause" {
		t.Errorf("query = %q, want action=pause", h.query)
	}
}

func TestHTTPClient_ManageTask_Failed(t *testing.T) {
	h := &testHandler{responseBody: `{"code":1002,"message":"task is not running"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	err := c.ManageTask(context.Background(), "build-1", ActionKill)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.CodeFailed {
		t.Fatalf("err = %v, want APIError with failed code", err)
	}
	if h.query != "action=kill" {
		t.Errorf("query = %q", h.query)
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"kill", "pause", "resume"} {
		if _, ok := ParseAction(s); !ok {
			t.Errorf("ParseAction(%q) rejected", s)
		}
	}
	if _, ok := ParseAction("paused"); ok {
		t.Error("ParseAction accepted an unknown action")
	}
}

// --- CreateTask ---

const taskDoc = `
name: build-1
timeout: 30m
env:
  - name: GOOS
    value: linux
step:
  - name: fetch
    type: bash
    content: git pull
  - name: compile
    type: bash
    content: make
    depends: [fetch]
`

func TestHTTPClient_CreateTaskYAML(t *testing.T) {
	h := &testHandler{responseBody: `{"code":0,"data":{"name":"build-1","count":2}}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	created, err := c.CreateTaskYAML(context.Background(), []byte(taskDoc))
	if err != nil {
		t.Fatalf("CreateTaskYAML() error = %v", err)
	}
	if created.Name != "build-1" || created.Count != 2 {
		t.Errorf("created = %+v", created)
	}

	if h.method != http.MethodPost || h.path != "/api/v1/task" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q", h.contentType)
	}
	q, _ := url.ParseQuery(h.query)
	if q.Get("name") != "build-1" || q.Get("timeout") != "30m" || q.Get("env") != "GOOS:linux" {
		t.Errorf("query = %v", q)
	}

	var steps []map[string]any
	if err := json.Unmarshal([]byte(h.body), &steps); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if len(steps) != 2 || steps[1]["name"] != "compile" {
		t.Fatalf("steps = %v", steps)
	}
	if deps, _ := steps[1]["depends"].([]any); len(deps) != 1 || deps[0] != "fetch" {
		t.Errorf("depends = %v", steps[1]["depends"])
	}
}

func TestHTTPClient_CreateTask_InvalidSpecNotSent(t *testing.T) {
	h := &testHandler{responseBody: `{"code":0}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.CreateTaskYAML(context.Background(), []byte("step:\n  - name: a\n    type: bash\n    content: x\n    depends: [missing]\n"))
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if h.method != "" {
		t.Error("invalid task was sent to the server")
	}
}

func TestParseTaskSpec_UnknownField(t *testing.T) {
	if _, err := ParseTaskSpec([]byte("name: x\nsteps: []\n")); err == nil {
		t.Fatal("expected error for unknown key 'steps'")
	}
	if _, err := ParseTaskSpec(nil); err == nil {
		t.Fatal("expected error for empty document")
	}
}

// --- DeleteTask ---

func TestHTTPClient_DeleteTask(t *testing.T) {
	h := &testHandler{responseBody: `{"code":0,"message":"success"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.DeleteTask(context.Background(), "build-1"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if h.method != http.MethodDelete || h.path != "/api/v1/task/build-1" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
}

// --- Errors ---

func TestHTTPClient_HTTPErrorWithEnvelope(t *testing.T) {
	h := &testHandler{statusCode: http.StatusInternalServerError, responseBody: `{"code":1002,"message":"engine unavailable"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	err := c.DeleteTask(context.Background(), "build-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != 500 || apiErr.Message != "engine unavailable" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestHTTPClient_HTTPErrorPlainBody(t *testing.T) {
	h := &testHandler{statusCode: http.StatusBadGateway, responseBody: "bad gateway\n"}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.GetStep(context.Background(), "t", "s")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Message != "bad gateway" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if got := apiErr.Error(); got != "HTTP 502: bad gateway" {
		t.Errorf("Error() = %q", got)
	}
}

func TestHTTPClient_MalformedResponse(t *testing.T) {
	h := &testHandler{responseBody: `<html>`}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.GetTask(context.Background(), "t")
	var pe *model.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want wrapped ProtocolError", err)
	}
}

func TestHTTPClient_Authorization(t *testing.T) {
	h := &testHandler{responseBody: `{"code":0}`}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/api/v1/", "s3cret")
	if err := c.DeleteTask(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if h.auth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", h.auth)
	}
	if h.path != "/api/v1/task/x" {
		t.Errorf("path = %q (trailing slash not trimmed?)", h.path)
	}
}
