package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Describer turns keywords into a sentence.
type Describer interface {
	Describe(ctx context.Context, keywords []string, language string) (string, error)
}

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no text")

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(baseURL, model, apiKey string, timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		timeout: timeout,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func buildPrompt(keywords []string, language string) string {
	return fmt.Sprintf(
		"Out of the following words [%s] form a sentence on what the user is trying to say.\n"+
			"Output only the sentence and nothing else.\n"+
			"Note: the words do not need to appear in the sentence.\n"+
			"Language: %s",
		strings.Join(keywords, ", "), language)
}

// Describe asks the model for one sentence built from keywords.
func (g *GeminiClient) Describe(ctx context.Context, keywords []string, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timeout := g.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	agent := fiber.Post(url).
		Set("x-goog-api-key", g.apiKey).
		Timeout(timeout).
		JSON(generateRequest{
			Contents: []content{{Parts: []part{{Text: buildPrompt(keywords, language)}}}},
		})
	if err := agent.Parse(); err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	var resp generateResponse
	code, body, errs := agent.Struct(&resp)
	if len(errs) > 0 {
		return "", fmt.Errorf("generateContent failed: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		if resp.Error != nil {
			return "", fmt.Errorf("generateContent returned %d: %s", code, resp.Error.Message)
		}
		return "", fmt.Errorf("generateContent returned %d: %s", code, string(body))
	}

	var sb strings.Builder
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
