package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Thread-and-run calls backing the legacy assistant flow. The agent package
// drives these through a poll loop; this file only adapts the provider API.

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if threadID == "" {
		return nil
	}
	if _, err := c.api.DeleteThread(ctx, threadID); err != nil {
		return fmt.Errorf("delete thread %q: %w", threadID, err)
	}
	return nil
}

func (c *Client) AddUserMessage(ctx context.Context, threadID, content string) error {
	_, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("add message to thread %q: %w", threadID, err)
	}
	return nil
}

func (c *Client) StartRun(ctx context.Context, threadID, assistantID, instructions string) (string, error) {
	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID:  assistantID,
		Instructions: instructions,
	})
	if err != nil {
		return "", fmt.Errorf("start run on thread %q: %w", threadID, err)
	}
	return run.ID, nil
}

func (c *Client) RunStatus(ctx context.Context, threadID, runID string) (string, error) {
	run, err := c.api.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return "", fmt.Errorf("retrieve run %q: %w", runID, err)
	}
	return string(run.Status), nil
}

func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := c.api.CancelRun(ctx, threadID, runID); err != nil {
		return fmt.Errorf("cancel run %q: %w", runID, err)
	}
	return nil
}

// LatestAssistantReply returns the newest assistant message on the thread.
func (c *Client) LatestAssistantReply(ctx context.Context, threadID string) (string, error) {
	msgs, err := c.api.ListMessage(ctx, threadID, nil, nil, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages for thread %q: %w", threadID, err)
	}
	for _, msg := range msgs.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Text != nil {
				return part.Text.Value, nil
			}
		}
	}
	return "", fmt.Errorf("thread %q has no assistant reply", threadID)
}

// AssistantReplies returns every assistant message on the thread, newest
// first, in the provider's listing order.
func (c *Client) AssistantReplies(ctx context.Context, threadID string) ([]string, error) {
	msgs, err := c.api.ListMessage(ctx, threadID, nil, nil, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages for thread %q: %w", threadID, err)
	}
	var replies []string
	for _, msg := range msgs.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Text != nil {
				replies = append(replies, part.Text.Value)
				break
			}
		}
	}
	return replies, nil
}
