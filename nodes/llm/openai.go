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
	openAIBaseURL      = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAI calls the chat completions API.
type OpenAI struct {
	// BaseURL overrides the API endpoint. Empty means the public API.
	BaseURL string
}

var _ Provider = (*OpenAI)(nil)

func (p *OpenAI) NodeType() api.NodeType { return api.NodeTypeOpenAI }

func (p *OpenAI) DefaultModel() string { return openAIDefaultModel }

func (p *OpenAI) Complete(ctx context.Context, client *http.Client, req Request) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = openAIBaseURL
	}

	body, err := json.Marshal(map[string]any{
		"model": req.Model,
		"messages": []map[string]string{
			{"role": "system", "content": req.SystemPrompt},
			{"role": "user", "content": req.UserPrompt},
		},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base+"/chat/completions", strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

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
		return "", fmt.Errorf("openai: %s: %s", resp.Status, truncateError(raw))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openai: response contains no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// truncateError keeps provider error bodies short enough for logs.
func truncateError(raw []byte) string {
	const max = 512
	s := string(raw)
	if len(s) > max {
		return s[:max]
	}
	return s
}
