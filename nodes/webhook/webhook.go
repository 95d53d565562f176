// Package webhook implements the chat webhook nodes. Discord and Slack
// share one executor body; the provider supplies the payload shape and the
// message-length ceiling both services happen to agree on.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/weftlabs/weft/internal/template"
	"github.com/weftlabs/weft/pkg/api"
)

// maxMessageLength is the hard per-message ceiling; rendered content is
// truncated to it before sending.
const maxMessageLength = 2000

// Provider shapes the outgoing payload for one chat service.
type Provider interface {
	NodeType() api.NodeType

	// Payload builds the JSON body for the given message. username is empty
	// unless the node configured one.
	Payload(content, username string) map[string]any
}

// Discord posts to a Discord webhook URL.
type Discord struct{}

func (Discord) NodeType() api.NodeType { return api.NodeTypeDiscord }

func (Discord) Payload(content, username string) map[string]any {
	payload := map[string]any{"content": content}
	if username != "" {
		payload["username"] = username
	}
	return payload
}

// Slack posts to a Slack incoming webhook URL. Slack has no per-message
// username override; the field is ignored.
type Slack struct{}

func (Slack) NodeType() api.NodeType { return api.NodeTypeSlack }

func (Slack) Payload(content, _ string) map[string]any {
	return map[string]any{"text": content}
}

// Executor sends the rendered message inside a durable step and stores the
// content actually sent under the configured variable name.
type Executor struct {
	provider  Provider
	templates *template.Resolver
}

var _ api.Executor = (*Executor)(nil)

// New creates an executor for the given chat provider.
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
	webhookURL, _ := cfg["webhookUrl"].(string)
	if strings.TrimSpace(webhookURL) == "" {
		return nil, api.NewConfigurationError(req.Node.ID, "webhookUrl")
	}
	rawContent, _ := cfg["content"].(string)
	if strings.TrimSpace(rawContent) == "" {
		return nil, api.NewConfigurationError(req.Node.ID, "content")
	}

	rendered, err := e.templates.Render(rawContent, req.Context)
	if err != nil {
		return nil, err
	}
	content := truncate(template.DecodeEntities(rendered))

	var username string
	if raw, ok := cfg["username"].(string); ok && raw != "" {
		renderedName, err := e.templates.Render(raw, req.Context)
		if err != nil {
			return nil, err
		}
		username = template.DecodeEntities(renderedName)
	}

	stepKey := api.ChannelFor(e.provider.NodeType()) + "-webhook-" + req.Node.ID
	value, err := req.Steps.Run(ctx, stepKey, func(ctx context.Context) (any, error) {
		if err := e.send(ctx, req, webhookURL, content, username); err != nil {
			return nil, err
		}
		return map[string]any{"messageContent": content}, nil
	})
	if err != nil {
		return nil, err
	}

	return req.Context.With(variableName, value), nil
}

func (e *Executor) send(ctx context.Context, req api.ExecRequest, url, content, username string) error {
	body, err := json.Marshal(e.provider.Payload(content, username))
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return api.NewMalformedConfigError(req.Node.ID, "webhookUrl", err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := req.HTTP.Do(httpReq)
	if err != nil {
		return api.NewExecutionError(req.Node.ID, "webhook delivery failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return api.NewExecutionError(req.Node.ID,
			"webhook rejected message with status "+resp.Status, nil)
	}
	return nil
}

// truncate counts characters, not bytes, so a multi-byte rune is never
// split mid-sequence.
func truncate(s string) string {
	if len(s) <= maxMessageLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxMessageLength {
		return s
	}
	return string(runes[:maxMessageLength])
}
