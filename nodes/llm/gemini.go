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
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-2.0-flash"
)

// Gemini calls the generateContent API.
type Gemini struct {
	// BaseURL overrides the API endpoint. Empty means the public API.
	BaseURL string
}

var _ Provider = (*Gemini)(nil)

func (p *Gemini) NodeType() api.NodeType { return api.NodeTypeGemini }

func (p *Gemini) DefaultModel() string { return geminiDefaultModel }

func (p *Gemini) Complete(ctx context.Context, client *http.Client, req Request) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = geminiBaseURL
	}

	body, err := json.Marshal(map[string]any{
		"system_instruction": map[string]any{
			"parts": []map[string]string{{"text": req.SystemPrompt}},
		},
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.UserPrompt}}},
		},
	})
	if err != nil {
		return "", err
	}

	url := base + "/models/" + req.Model + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", req.APIKey)

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
		return "", fmt.Errorf("gemini: %s: %s", resp.Status, truncateError(raw))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: response contains no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
