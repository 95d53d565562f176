package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/weftlabs/weft/pkg/api"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-7-sonnet-latest"
	anthropicMaxTokens    = 4096
)

// Anthropic calls the messages API.
type Anthropic struct {
	// BaseURL overrides the API endpoint. Empty means the public API.
	BaseURL string
}

var _ Provider = (*Anthropic)(nil)

func (p *Anthropic) NodeType() api.NodeType { return api.NodeTypeAnthropic }

func (p *Anthropic) DefaultModel() string { return anthropicDefaultModel }

func (p *Anthropic) Complete(ctx context.Context, client *http.Client, req Request) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = anthropicBaseURL
	}

	body, err := json.Marshal(map[string]any{
		"model":      req.Model,
		"max_tokens": anthropicMaxTokens,
		"system":     req.SystemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": req.UserPrompt},
		},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base+"/messages", strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("anthropic: %s: %s", resp.Status, truncateError(raw))
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Content) == 0 {
		return "", errors.New("anthropic: response contains no content blocks")
	}
	// Only the first block counts; a non-text block (e.g. tool_use) yields
	// an empty completion rather than an error.
	if first := parsed.Content[0]; first.Type == "text" {
		return first.Text, nil
	}
	return "", nil
}
