package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGeminiModel = "gemini-1.5-flash-latest"
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"

	promptTemplate = "%sについて、VOICEVOXのキャラクターが読み上げることを想定して、150文字程度の面白い豆知識を交えながら紹介してください。最初の挨拶は必要ありません。"
)

// Gemini writes trivia with the generateContent REST endpoint.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	retry   retryer
}

func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   retryer{maxRetries: 3, baseDelay: 500 * time.Millisecond},
	}
}

// WithBaseURL points the client at another endpoint.
func (g *Gemini) WithBaseURL(url string) *Gemini {
	g.baseURL = strings.TrimRight(url, "/")
	return g
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Narrate returns a short introduction of subject on a single line.
func (g *Gemini) Narrate(ctx context.Context, subject string) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(subject) == "" {
		return "", ErrEmptyText
	}

	payload, err := json.Marshal(geminiRequest{Contents: []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: fmt.Sprintf(promptTemplate, subject)}},
	}}})
	if err != nil {
		return "", err
	}

	var text string
	err = g.retry.do(ctx, func() error {
		t, err := g.generate(ctx, payload)
		text = t
		return err
	})
	if err != nil {
		return "", err
	}
	return cleanText(text), nil
}

func (g *Gemini) generate(ctx context.Context, payload []byte) (string, error) {
	apiURL := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", parseAPIError("gemini", resp.StatusCode, body)
	}

	var out geminiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	var sb strings.Builder
	for _, c := range out.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyText
	}
	return sb.String(), nil
}

// cleanText puts the text on one line for the speech engine.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
