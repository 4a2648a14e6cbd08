package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/harvestpath/harvestpath/pkg/domain/verify"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// GeminiVerifier judges proofs with a Gemini multimodal model.
type GeminiVerifier struct {
	Model    string
	client   *genai.Client
	generate generateFunc
}

// NewGeminiVerifier connects to the Gemini API.
func NewGeminiVerifier(ctx context.Context, model, apiKey string) (*GeminiVerifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key not provided (set GEMINI_API_KEY)")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(0.1)
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction))

	return &GeminiVerifier{Model: model, client: client, generate: m.GenerateContent}, nil
}

func (v *GeminiVerifier) ID() string {
	return "gemini:" + v.Model
}

func (v *GeminiVerifier) Verify(ctx context.Context, req verify.Request) (*verify.Verdict, error) {
	if req.Image.IsEmpty() {
		return nil, fmt.Errorf("proof image is empty")
	}

	resp, err := v.generate(ctx,
		genai.Text(BuildPrompt(req)),
		genai.Blob{MIMEType: req.Image.ContentType(), Data: req.Image.Data},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, err
	}
	return ParseVerdict(text)
}

// Close releases the underlying client.
func (v *GeminiVerifier) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini API returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini API returned no content")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("Gemini API returned no text parts")
	}
	return strings.Join(parts, ""), nil
}
