package verifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOpenAIURL   = "https://api.openai.com/v1/chat/completions"
)

// OpenAIVerifier judges proofs through an OpenAI-compatible chat completions endpoint.
// Any vision model served behind that API works, including self-hosted ones.
type OpenAIVerifier struct {
	Model      string
	APIKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIVerifier(model, apiKey string) *OpenAIVerifier {
	return NewOpenAIVerifierWithClient(model, apiKey, "", nil)
}

// NewOpenAIVerifierWithClient creates a verifier with a custom endpoint and HTTP client.
func NewOpenAIVerifierWithClient(model, apiKey, baseURL string, client *http.Client) *OpenAIVerifier {
	if model == "" {
		model = defaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAIVerifier{
		Model:      model,
		APIKey:     apiKey,
		baseURL:    baseURL,
		httpClient: client,
	}
}

func (v *OpenAIVerifier) ID() string {
	return "openai:" + v.Model
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (v *OpenAIVerifier) Verify(ctx context.Context, req verify.Request) (*verify.Verdict, error) {
	if v.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY)")
	}
	if req.Image.IsEmpty() {
		return nil, fmt.Errorf("proof image is empty")
	}

	dataURL := "data:" + req.Image.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data)
	body, err := json.Marshal(chatRequest{
		Model: v.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: BuildPrompt(req)},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			}},
		},
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+v.APIKey)

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API returned status: %s", resp.Status)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, err
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI API returned no choices")
	}
	return ParseVerdict(chat.Choices[0].Message.Content)
}
