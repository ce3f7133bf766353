// Package nodes supplies a small library of built-in node implementations,
// one or more per domain.NodeCategory, each honoring the registry.Node
// contract. The HTTP action node is grounded on the teacher's
// internal/node/builtin/http_node.go generic adapter: a typed request
// builder plus a raw *http.Client call, generalized here to a
// parameter-driven node instead of a compile-time generic.
package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flowcore/flowcore/internal/domain"
)

// HTTPRequestNode performs a single HTTP request and returns a
// {status, body} object; response headers are not included. It is the Action category exemplar.
type HTTPRequestNode struct {
	Client *http.Client
}

func NewHTTPRequestNode() *HTTPRequestNode {
	return &HTTPRequestNode{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (n *HTTPRequestNode) Definition() domain.NodeDefinition {
	return domain.NodeDefinition{
		ID:          "http_request",
		Name:        "HTTP Request",
		Version:     "1.0.0",
		Description: "Issues an HTTP request and returns its response",
		Category:    domain.CategoryAction,
		Inputs: []domain.PortSpec{
			{Name: "body", DataType: domain.DataTypeAny, Required: false},
		},
		Outputs: []domain.PortSpec{
			{Name: "out", DataType: domain.DataTypeObject, Required: true},
		},
		Parameters: []domain.ParameterSpec{
			{Name: "url", Type: domain.ParamString, Required: true},
			{Name: "method", Type: domain.ParamSelect, Required: false, Default: "GET"},
			{Name: "headers", Type: domain.ParamObject, Required: false},
		},
		SupportsRetry:   true,
		IsDeterministic: false,
	}
}

func (n *HTTPRequestNode) Validate(_ context.Context, ec *domain.ExecutionContext) error {
	url, _ := ec.Input["url"].(string)
	if url == "" {
		return fmt.Errorf("url parameter must not be empty")
	}
	return nil
}

func (n *HTTPRequestNode) Execute(ctx context.Context, ec *domain.ExecutionContext) (any, *domain.ExecutionError) {
	url := ec.Input["url"].(string)
	method, _ := ec.Input["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if b, ok := ec.Input["body"]; ok && b != nil {
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, domain.NewExecutionError(domain.ErrValidation, "body is not JSON-serializable").WithRetryable(false)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrValidation, err.Error()).WithRetryable(false)
	}
	if headers, ok := ec.Input["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, fmt.Sprintf("%v", v))
		}
	}
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrNetwork, err.Error())
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		parsed = string(data)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.NewExecutionError(domain.ErrRateLimit, "received 429 from remote")
	}
	if resp.StatusCode >= 500 {
		return nil, domain.NewExecutionError(domain.ErrNetwork, fmt.Sprintf("remote returned %d", resp.StatusCode))
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.NewExecutionError(domain.ErrAuthentication, "received 401 from remote").WithRetryable(false)
	}
	if resp.StatusCode == http.StatusForbidden {
		return nil, domain.NewExecutionError(domain.ErrAuthorization, "received 403 from remote").WithRetryable(false)
	}

	return map[string]any{
		"status": resp.StatusCode,
		"body":   parsed,
	}, nil
}

func (n *HTTPRequestNode) SupportsRetry() bool   { return true }
func (n *HTTPRequestNode) IsDeterministic() bool { return false }

// WebhookCallNode is the Integration category exemplar: a thinner wrapper
// around the same HTTP mechanics, fixed to POST and tuned toward
// fire-and-forget delivery to a third-party integration endpoint.
type WebhookCallNode struct {
	inner *HTTPRequestNode
}

func NewWebhookCallNode() *WebhookCallNode {
	return &WebhookCallNode{inner: NewHTTPRequestNode()}
}

func (n *WebhookCallNode) Definition() domain.NodeDefinition {
	d := n.inner.Definition()
	d.ID = "webhook_call"
	d.Name = "Webhook Call"
	d.Description = "Delivers the current output to an external webhook endpoint"
	d.Category = domain.CategoryIntegration
	return d
}

func (n *WebhookCallNode) Validate(ctx context.Context, ec *domain.ExecutionContext) error {
	return n.inner.Validate(ctx, ec)
}

func (n *WebhookCallNode) Execute(ctx context.Context, ec *domain.ExecutionContext) (any, *domain.ExecutionError) {
	forced := *ec
	forced.Input = map[string]any{
		"url":     ec.Input["url"],
		"method":  http.MethodPost,
		"headers": ec.Input["headers"],
		"body":    ec.Input["body"],
	}
	return n.inner.Execute(ctx, &forced)
}

func (n *WebhookCallNode) SupportsRetry() bool   { return true }
func (n *WebhookCallNode) IsDeterministic() bool { return false }
