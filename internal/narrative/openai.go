package narrative

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/suvichaar/storygen/internal/httpclient"
	"github.com/suvichaar/storygen/internal/retry"
)

// OpenAIChat implements Completer with chat completions.
type OpenAIChat struct {
	client openai.Client
	model  string
}

func NewOpenAIChat(apiKey, model string, opts ...option.RequestOption) *OpenAIChat {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	// retry.Policy owns retries; the SDK's own loop would multiply attempts.
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OpenAIChat{client: openai.NewClient(opts...), model: model}
}

func (c *OpenAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.Code == "content_policy_violation" || apiErr.Code == "content_filter" {
				return "", fmt.Errorf("openai: %w: %s", retry.ErrContentPolicy, apiErr.Message)
			}
			return "", &httpclient.HTTPError{Service: "openai", Path: "/chat/completions", StatusCode: apiErr.StatusCode, Body: apiErr.Message}
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("openai: %w: completion filtered", retry.ErrContentPolicy)
	}
	return choice.Message.Content, nil
}
