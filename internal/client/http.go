package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/flowview/internal/model"
)

// DefaultBasePath is where the engine mounts its versioned API.
const DefaultBasePath = "/api/v1"

// HTTPClient implements FlowClient against the engine's REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the API rooted at baseURL
// (e.g. "http://localhost:2376/api/v1"). When token is non-empty, an
// Authorization header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Tasks ---

func (c *HTTPClient) GetTask(ctx context.Context, name string) (*model.Task, error) {
	var task model.Task
	if err := c.doJSON(ctx, http.MethodGet, "/task/"+url.PathEscape(name), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask validates spec locally and submits it. Task-level settings go
// in the query string; the steps are the request body.
func (c *HTTPClient) CreateTask(ctx context.Context, spec *model.TaskSpec) (*model.TaskCreated, error) {
	if err := model.ValidateTaskSpec(spec); err != nil {
		return nil, err
	}

	q := url.Values{}
	if spec.Name != "" {
		q.Set("name", spec.Name)
	}
	if spec.Desc != "" {
		q.Set("description", spec.Desc)
	}
	if spec.Node != "" {
		q.Set("node", spec.Node)
	}
	if spec.Async {
		q.Set("async", "true")
	}
	if spec.Disable {
		q.Set("disable", "true")
	}
	if spec.Timeout != "" {
		q.Set("timeout", spec.Timeout)
	}
	env := append([]model.EnvVar(nil), spec.Env...)
	sort.Slice(env, func(i, j int) bool { return env[i].Name < env[j].Name })
	for _, e := range env {
		q.Add("env", e.Name+":"+e.Value)
	}

	path := "/task"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var created model.TaskCreated
	if err := c.doJSON(ctx, http.MethodPost, path, spec.Step, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateTaskYAML parses a task document and submits it.
func (c *HTTPClient) CreateTaskYAML(ctx context.Context, doc []byte) (*model.TaskCreated, error) {
	spec, err := ParseTaskSpec(doc)
	if err != nil {
		return nil, err
	}
	return c.CreateTask(ctx, spec)
}

func (c *HTTPClient) DeleteTask(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, "/task/"+url.PathEscape(name), nil, nil)
}

func (c *HTTPClient) ManageTask(ctx context.Context, name string, action Action) error {
	path := "/task/" + url.PathEscape(name) + "?action=" + url.QueryEscape(string(action))
	return c.doJSON(ctx, http.MethodPut, path, nil, nil)
}

// --- Steps ---

func (c *HTTPClient) GetStep(ctx context.Context, task, step string) (*model.StepDetail, error) {
	var detail model.StepDetail
	path := "/task/" + url.PathEscape(task) + "/step/" + url.PathEscape(step)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *HTTPClient) ManageStep(ctx context.Context, task, step string, action Action) error {
	path := "/task/" + url.PathEscape(task) + "/step/" + url.PathEscape(step) + "?action=" + url.QueryEscape(string(action))
	return c.doJSON(ctx, http.MethodPut, path, nil, nil)
}

// ParseTaskSpec decodes a YAML task document. Unknown keys are rejected so
// typos surface before anything reaches the engine.
func ParseTaskSpec(doc []byte) (*model.TaskSpec, error) {
	var spec model.TaskSpec
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing task document: empty document")
		}
		return nil, fmt.Errorf("parsing task document: %w", err)
	}
	return &spec, nil
}

// --- internal helpers ---

// APIError represents a failed call: an HTTP error status, or a 2xx
// response whose envelope carries a non-success code.
type APIError struct {
	StatusCode int
	Code       model.Code
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != model.CodeSuccess {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body, checks the
// response envelope and decodes its data into result. If result is nil the
// data is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	env, decodeErr := model.DecodeEnvelope(respBody)
	if resp.StatusCode >= 400 {
		if decodeErr == nil && env.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	if decodeErr != nil {
		return fmt.Errorf("decoding response: %w", decodeErr)
	}
	if env.Code != model.CodeSuccess {
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if result != nil && env.HasData() {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
