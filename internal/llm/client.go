// Package llm wraps the Gemini completion API behind the small surface
// the rest of the service needs: plain completions, JSON completions and
// multi-turn chat. Everything model-specific (fence stripping, role
// mapping, JSON coaxing) lives here; callers get either a parsed generic
// value or a typed error.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the default Gemini model used for analysis and advice.
const DefaultModel = "gemini-2.5-flash"

// Message is one turn of a chat conversation, in the wire shape the
// dashboard exchanges ({role, content}).
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a thin wrapper over the GenAI SDK.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a completion client. An empty API key is a configuration
// error (ErrMissingAPIKey), surfaced before any request is attempted.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Complete sends a single-turn prompt and returns the raw completion
// text. Upstream failures are wrapped in *UpstreamError.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	return c.generate(ctx, system, contents, false)
}

// CompleteJSON sends a single-turn prompt in JSON mode and parses the
// completion into a generic JSON object. A body that is not a JSON
// object at all is reported as *MalformedResponseError; shape problems
// inside the object are the normalizer's concern, not an error here.
func (c *Client) CompleteJSON(ctx context.Context, system, prompt string) (map[string]interface{}, error) {
	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	raw, err := c.generate(ctx, system, contents, true)
	if err != nil {
		return nil, err
	}

	clean := CleanModelJSON(raw)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	return parsed, nil
}

// Chat sends a multi-turn conversation and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, system string, messages []Message) (Message, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		// The dashboard speaks OpenAI-style roles; Gemini calls the
		// assistant side "model".
		if m.Role == "assistant" || m.Role == string(genai.RoleModel) {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	text, err := c.generate(ctx, system, contents, false)
	if err != nil {
		return Message{}, err
	}
	return Message{Role: "assistant", Content: text}, nil
}

func (c *Client) generate(ctx context.Context, system string, contents []*genai.Content, jsonMode bool) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if jsonMode {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}

	text := resp.Text()
	if text == "" {
		return "", &UpstreamError{Err: fmt.Errorf("empty response from model")}
	}
	return text, nil
}
