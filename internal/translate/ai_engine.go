package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// aiGenerateRequest mirrors Ollama's /api/generate body.
type aiGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type aiGenerateResponse struct {
	Response string `json:"response"`
}

// aiBatchPromptPreamble opens the translation batch prompt; the model
// must answer with a JSON array of the same length, in order.
const aiBatchPromptPreamble = "Translate each of the following cast names or character names to Simplified Chinese. " +
	"Respond with a JSON array of strings, same length and order as the input, no commentary.\n\nInput:\n"

// AIEngine calls a local or remote Ollama-compatible endpoint for a
// single batched translation request per item, wrapped in a circuit
// breaker so a dead endpoint fails fast instead of stalling every item.
type AIEngine struct {
	endpoint string
	model    string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[[]string]
}

// NewAIEngine builds an AIEngine. timeout applies per HTTP call.
func NewAIEngine(endpoint, model string, timeout time.Duration) *AIEngine {
	settings := gobreaker.Settings{
		Name:        "translate-ai",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &AIEngine{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: timeout},
		breaker:  gobreaker.NewCircuitBreaker[[]string](settings),
	}
}

func (e *AIEngine) Name() string { return "ai" }

// Translate sends one batch request and expects a same-length JSON
// array back. A malformed or short response is treated as a total
// failure for the batch; the caller falls through to ordered fallbacks.
func (e *AIEngine) Translate(ctx context.Context, texts []string) ([]string, error) {
	return e.breaker.Execute(func() ([]string, error) {
		prompt := aiBatchPromptPreamble + joinNumbered(texts)

		body, err := json.Marshal(aiGenerateRequest{Model: e.model, Prompt: prompt, Stream: false})
		if err != nil {
			return nil, fmt.Errorf("marshaling AI request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("building AI request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("calling AI endpoint: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("AI endpoint returned %d: %s", resp.StatusCode, string(raw))
		}

		var gen aiGenerateResponse
		if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
			return nil, fmt.Errorf("decoding AI response: %w", err)
		}

		var out []string
		if err := json.Unmarshal([]byte(extractJSONArray(gen.Response)), &out); err != nil {
			return nil, fmt.Errorf("AI response was not a JSON string array: %w", err)
		}
		if len(out) != len(texts) {
			return nil, fmt.Errorf("AI returned %d results for %d inputs", len(out), len(texts))
		}
		return out, nil
	})
}

func joinNumbered(texts []string) string {
	var b strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return b.String()
}

// extractJSONArray trims any leading/trailing prose a chat-tuned model
// adds around the array the prompt asked for.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
