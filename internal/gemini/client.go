package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const synthesisPrompt = `Please analyze and synthesize the following medical research information into a clear, concise response.
Focus on the most relevant and important points related to the query.

Query: %s

Raw Information:
%s

Please provide a well-structured response that:
1. Prioritizes the most relevant findings
2. Highlights key clinical or research developments
3. Removes redundant information
4. Maintains scientific accuracy
5. Is easy to understand

Response should include:
- Key findings or developments
- Important research outcomes
- Clinical implications (if applicable)
- Relevant statistics or data points
`

// Client wraps the Gemini API for research synthesis.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini client. The API key is mandatory.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Summarize sends the aggregated source document plus the original query
// through the synthesis prompt and returns the model's response text.
// Errors are not retried here; the caller decides what a failed synthesis
// means for its operation.
func (c *Client) Summarize(ctx context.Context, query, document string) (string, error) {
	prompt := fmt.Sprintf(synthesisPrompt, query, document)

	result, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.3),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}
