package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one role-tagged chat message sent to the model.
type Message struct {
	Role    string
	Content string
}

// Tool describes a single function tool the model is required to call.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Config carries provider connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
}

// Client wraps the OpenAI-compatible provider for chat completion,
// structured extraction and embeddings.
type Client struct {
	api            *openai.Client
	chatModel      string
	embeddingModel string
}

func NewClient(cfg Config) *Client {
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "o4-mini"
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-large"
	}
	return &Client{
		api:            openai.NewClientWithConfig(conf),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
	}
}

// Chat runs one blocking chat completion with model-side limits.
func (c *Client) Chat(ctx context.Context, messages []Message, maxTokens int, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:               c.chatModel,
		Messages:            toChatMessages(messages),
		MaxCompletionTokens: maxTokens,
		Temperature:         temperature,
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choice list")
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractStructured forces the model to call the given function tool and
// returns the parsed arguments, failing if the model declines.
func (c *Client) ExtractStructured(ctx context.Context, messages []Message, tool Tool) (json.RawMessage, error) {
	var params any
	if len(tool.Parameters) > 0 {
		if err := json.Unmarshal(tool.Parameters, &params); err != nil {
			return nil, fmt.Errorf("tool parameter schema: %w", err)
		}
	}
	req := openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: toChatMessages(messages),
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: tool.Name},
		},
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("structured extraction: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, ErrNoStructuredData
	}
	return json.RawMessage(resp.Choices[0].Message.ToolCalls[0].Function.Arguments), nil
}

// Embed computes the vector embedding for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

func toChatMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
