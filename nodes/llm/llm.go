// Package llm implements the language model nodes. One executor drives
// the shared prompt/credential/step flow; providers supply the REST call.
package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/weftlabs/weft/internal/template"
	"github.com/weftlabs/weft/pkg/api"
)

// defaultSystemPrompt is used when the node config leaves systemPrompt
// empty.
const defaultSystemPrompt = "You are a helpful assistant."

// Request is a fully resolved completion request handed to a provider.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	APIKey       string
}

// Provider performs one completion against a model API and returns the
// generated text.
type Provider interface {
	// NodeType is the node type this provider serves.
	NodeType() api.NodeType

	// DefaultModel is used when the node config does not pick a model.
	DefaultModel() string

	// Complete performs the API call using the given client.
	Complete(ctx context.Context, client *http.Client, req Request) (string, error)
}

// Executor runs a provider's completion inside a durable step and stores
// the generated text in the context under the configured variable name.
type Executor struct {
	provider  Provider
	templates *template.Resolver
}

var _ api.Executor = (*Executor)(nil)

// New creates an executor for the given provider.
func New(p Provider) *Executor {
	return &Executor{provider: p, templates: template.New(template.Lenient)}
}

func (e *Executor) Type() api.NodeType { return e.provider.NodeType() }

func (e *Executor) Execute(ctx context.Context, req api.ExecRequest) (api.Context, error) {
	cfg := req.Node.Config

	variableName, _ := cfg["variableName"].(string)
	if strings.TrimSpace(variableName) == "" {
		return nil, api.NewConfigurationError(req.Node.ID, "variableName")
	}
	userPrompt, _ := cfg["userPrompt"].(string)
	if strings.TrimSpace(userPrompt) == "" {
		return nil, api.NewConfigurationError(req.Node.ID, "userPrompt")
	}
	credentialID, _ := cfg["credentialId"].(string)
	if strings.TrimSpace(credentialID) == "" {
		return nil, api.NewConfigurationError(req.Node.ID, "credentialId")
	}

	systemPrompt := defaultSystemPrompt
	if s, ok := cfg["systemPrompt"].(string); ok && s != "" {
		systemPrompt = s
	}
	model := e.provider.DefaultModel()
	if m, ok := cfg["model"].(string); ok && m != "" {
		model = m
	}

	renderedSystem, err := e.templates.Render(systemPrompt, req.Context)
	if err != nil {
		return nil, err
	}
	renderedUser, err := e.templates.Render(userPrompt, req.Context)
	if err != nil {
		return nil, err
	}

	// The secret is resolved outside the step so it is never part of the
	// memoized result.
	apiKey, err := req.Credentials.Resolve(ctx, credentialID, req.UserID)
	if err != nil {
		return nil, &api.CredentialError{NodeID: req.Node.ID, CredentialID: credentialID}
	}

	stepKey := api.ChannelFor(e.provider.NodeType()) + "-" + req.Node.ID
	value, err := req.Steps.Run(ctx, stepKey, func(ctx context.Context) (any, error) {
		text, err := e.provider.Complete(ctx, req.HTTP, Request{
			Model:        model,
			SystemPrompt: renderedSystem,
			UserPrompt:   renderedUser,
			APIKey:       apiKey,
		})
		if err != nil {
			return nil, api.NewExecutionError(req.Node.ID, "completion failed", err)
		}
		return map[string]any{"text": text}, nil
	})
	if err != nil {
		return nil, err
	}

	return req.Context.With(variableName, value), nil
}
