package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/suvichaar/storygen/internal/httpclient"
	"github.com/suvichaar/storygen/internal/retry"
)

// OpenAIImageClient generates portrait images with the OpenAI images API.
type OpenAIImageClient struct {
	client openai.Client
	model  string
}

func NewOpenAIImageClient(apiKey, model string, opts ...option.RequestOption) *OpenAIImageClient {
	if model == "" {
		model = string(openai.ImageModelDallE3)
	}
	// retry.Policy owns retries; the SDK's own loop would multiply attempts.
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OpenAIImageClient{client: openai.NewClient(opts...), model: model}
}

func (c *OpenAIImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(c.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1792,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, "", classifyOpenAIError(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, "", errors.New("openai: empty image response")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, "", fmt.Errorf("openai: decode image: %w", err)
	}
	return data, "image/png", nil
}

// classifyOpenAIError maps SDK errors onto the retry taxonomy.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Code == "content_policy_violation" {
		return fmt.Errorf("openai: %w: %s", retry.ErrContentPolicy, apiErr.Message)
	}
	return &httpclient.HTTPError{Service: "openai", Path: "/images/generations", StatusCode: apiErr.StatusCode, Body: apiErr.Message}
}
