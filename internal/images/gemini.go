package images

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/suvichaar/storygen/internal/retry"
)

// GeminiImageClient generates images with the Gemini API.
type GeminiImageClient struct {
	client *genai.Client
	model  string
}

func NewGeminiImageClient(ctx context.Context, apiKey, model string) (*GeminiImageClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiImageClient{client: client, model: model}, nil
}

func (c *GeminiImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, "", err
	}
	return imageFromResponse(resp)
}

// imageFromResponse returns the first inline image of the first candidate.
// A blocked candidate is reported as a content-policy rejection.
func imageFromResponse(resp *genai.GenerateContentResponse) ([]byte, string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, "", fmt.Errorf("gemini: prompt blocked (%s): %w", resp.PromptFeedback.BlockReason, retry.ErrContentPolicy)
		}
		return nil, "", errors.New("gemini: no candidates")
	}
	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop:
	default:
		return nil, "", fmt.Errorf("gemini: finished with %s: %w", candidate.FinishReason, retry.ErrContentPolicy)
	}
	if candidate.Content == nil {
		return nil, "", errors.New("gemini: empty candidate")
	}
	for _, part := range candidate.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, part.InlineData.MIMEType, nil
		}
	}
	return nil, "", errors.New("gemini: response has no image data")
}
