package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"quizroom-service/internal/domain"
)

const defaultResponsesURL = "https://api.openai.com/v1/responses"

// Config configures the responses endpoint and HTTP behavior.
type Config struct {
	ResponsesURL string
	APIKey       string
	Model        string
	Count        int
	Language     string
	HTTPClient   *http.Client
}

// Generator asks an OpenAI-compatible responses endpoint to write a quiz.
type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = defaultResponsesURL
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = "Indonesian"
	}
	return &Generator{cfg: cfg}
}

func (g *Generator) Generate(ctx context.Context, theme string) ([]domain.Question, error) {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(g.cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": g.cfg.Model,
		"input": g.prompt(theme),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.ResponsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	res, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return nil, fmt.Errorf("read generate error body: %w", err)
		}
		return nil, fmt.Errorf("generate request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}

	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if content.Type == "output_text" && strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return nil, fmt.Errorf("generate response missing output text")
	}
	return ParseQuestions(outputText)
}

func (g *Generator) prompt(theme string) string {
	return fmt.Sprintf(`Write %d multiple-choice quiz questions in %s about the theme %q.
Reply with only a JSON array. Each element must be an object with:
  "question": the question text,
  "options": exactly four strings labeled "A) ...", "B) ...", "C) ...", "D) ...",
  "answer": the label of the correct option, one of "A", "B", "C", "D".`,
		g.cfg.Count, g.cfg.Language, theme)
}

// ParseQuestions extracts the question array from model output. Markdown code fences
// and surrounding prose are tolerated.
func ParseQuestions(text string) ([]domain.Question, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("output has no question array")
	}

	var questions []domain.Question
	if err := json.Unmarshal([]byte(text[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	for i := range questions {
		questions[i].Answer = domain.AnswerLabel(questions[i].Answer)
		if err := questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return questions, nil
}
