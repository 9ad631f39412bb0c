package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pagepilot/pagepilot/pkg/models"
)

// actionSchema is the fixed vocabulary handed to the model. It matches the
// Action wire format exactly; anything outside it fails decoding and the
// planner falls back.
const actionSchema = `Supported actions (JSON objects, "params" keys are exact):
- {"type": "navigate", "params": {"url": "<absolute url>"}}
- {"type": "click", "params": {"selector": "<css selector>"}}
- {"type": "type", "params": {"selector": "<css selector>", "text": "<text>"}}
- {"type": "wait", "params": {"duration_ms": <0-60000>}}
- {"type": "wait_for_element", "params": {"selector": "<css selector>", "timeout_ms": <0-60000>}}
- {"type": "scroll", "params": {"direction": "up"|"down"|"left"|"right", "pixels": <int>}}
- {"type": "screenshot", "params": {}}
- {"type": "get_page_source", "params": {}}
- {"type": "execute_script", "params": {"script": "<javascript>"}}`

const systemPrompt = `You are a web automation planner. Convert the user's task into an ordered
sequence of browser actions.

` + actionSchema + `

Respond with a single JSON array of action objects and nothing else. Do not
invent action types or parameters. Keep plans short and end with an
observation step (get_page_source or screenshot) so the caller can see the
outcome.`

// OpenAIBackend plans through any OpenAI-compatible chat completion endpoint,
// including a local Ollama server via base-URL override.
type OpenAIBackend struct {
	client openai.Client
	model  string
}

// NewOpenAIBackend builds a backend. baseURL may be empty for the default
// endpoint; model must name a chat model the endpoint serves.
func NewOpenAIBackend(apiKey, baseURL, model string) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// GeneratePlan asks the model for an action list and decodes it strictly.
func (b *OpenAIBackend) GeneratePlan(ctx context.Context, req Request) ([]models.Action, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(req)),
		},
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return decodeActions(resp.Choices[0].Message.Content)
}

// userPrompt renders the task, URL and context. Context entries are plain
// key/value hints for the model; values carry no executable interpretation.
func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", req.Task)
	if req.TargetURL != "" {
		fmt.Fprintf(&b, "Target URL: %s\n", req.TargetURL)
	}
	if len(req.Context) > 0 {
		b.WriteString("Context:\n")
		keys := make([]string, 0, len(req.Context))
		for k := range req.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, req.Context[k])
		}
	}
	b.WriteString("\nRespond with the JSON action array only.")
	return b.String()
}

// decodeActions extracts the JSON array from the model output and decodes it
// into the closed action vocabulary. Malformed JSON gets one repair attempt
// before the response is rejected.
func decodeActions(content string) ([]models.Action, error) {
	raw, err := extractJSONArray(content)
	if err != nil {
		return nil, err
	}

	var actions []models.Action
	if err := json.Unmarshal([]byte(raw), &actions); err == nil {
		return actions, nil
	}

	repaired, rerr := jsonrepair.JSONRepair(raw)
	if rerr != nil {
		return nil, fmt.Errorf("unparsable plan response: %w", rerr)
	}
	if err := json.Unmarshal([]byte(repaired), &actions); err != nil {
		return nil, fmt.Errorf("unparsable plan response: %w", err)
	}
	return actions, nil
}

// extractJSONArray tolerates prose around the array, which smaller models
// emit despite instructions.
func extractJSONArray(content string) (string, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON array in plan response")
	}
	return content[start : end+1], nil
}
