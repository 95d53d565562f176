// Package httpreq implements the HTTP request node: an outbound call whose
// response is published into the execution context for downstream nodes.
package httpreq

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/weftlabs/weft/internal/template"
	"github.com/weftlabs/weft/pkg/api"
)

// defaultVariableName receives the response when the node's config does
// not pick a name.
const defaultVariableName = "httpResponse"

var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// Executor performs the HTTP call inside a durable step, so a run-level
// retry does not repeat a call that already completed.
type Executor struct {
	templates *template.Resolver
}

var _ api.Executor = (*Executor)(nil)

// New creates the HTTP request executor.
func New() *Executor {
	return &Executor{templates: template.New(template.Lenient)}
}

func (e *Executor) Type() api.NodeType { return api.NodeTypeHTTPRequest }

// result is the shape stored under the node's variable name.
type result struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Data       any    `json:"data"`
}

func (e *Executor) Execute(ctx context.Context, req api.ExecRequest) (api.Context, error) {
	cfg := req.Node.Config

	rawURL, _ := cfg["endpoint"].(string)
	if strings.TrimSpace(rawURL) == "" {
		return nil, api.NewConfigurationError(req.Node.ID, "endpoint")
	}

	method := http.MethodGet
	if m, ok := cfg["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	variableName := defaultVariableName
	if v, ok := cfg["variableName"].(string); ok && v != "" {
		variableName = v
	}

	url, err := e.templates.Render(rawURL, req.Context)
	if err != nil {
		return nil, err
	}

	var body string
	if bodyMethods[method] {
		rawBody, _ := cfg["body"].(string)
		if rawBody != "" {
			body, err = e.templates.Render(rawBody, req.Context)
			if err != nil {
				return nil, err
			}
			if !json.Valid([]byte(body)) {
				return nil, api.NewMalformedConfigError(req.Node.ID, "body", "rendered body is not valid JSON")
			}
		}
	}

	stepKey := "http-request-" + req.Node.ID
	value, err := req.Steps.Run(ctx, stepKey, func(ctx context.Context) (any, error) {
		return e.do(ctx, req, method, url, body)
	})
	if err != nil {
		return nil, err
	}

	return req.Context.With(variableName, value), nil
}

func (e *Executor) do(ctx context.Context, req api.ExecRequest, method, url, body string) (any, error) {
	var payload io.Reader
	if body != "" {
		payload = strings.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return nil, api.NewMalformedConfigError(req.Node.ID, "endpoint", err.Error())
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := req.HTTP.Do(httpReq)
	if err != nil {
		return nil, api.NewExecutionError(req.Node.ID, "http request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, api.NewExecutionError(req.Node.ID, "reading response body failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, api.NewExecutionError(req.Node.ID,
			"request failed with status "+resp.Status, nil)
	}

	return result{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Data:       decodeBody(resp.Header.Get("Content-Type"), raw),
	}, nil
}

// decodeBody keeps JSON responses structured so templates can reach into
// them; everything else is passed through as a string.
func decodeBody(contentType string, raw []byte) any {
	if strings.Contains(contentType, "application/json") {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}
