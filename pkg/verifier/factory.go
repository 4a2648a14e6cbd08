package verifier

import (
	"context"
	"fmt"
	"os"

	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

// Environment variables consulted by FromEnv.
const (
	EnvProvider = "HARVESTPATH_VERIFIER_PROVIDER"
	EnvModel    = "HARVESTPATH_VERIFIER_MODEL"
	EnvBaseURL  = "HARVESTPATH_VERIFIER_BASE_URL"
)

// New constructs a bare verifier for the named provider.
func New(ctx context.Context, provider, model string) (verify.Verifier, error) {
	switch provider {
	case "mock", "":
		v := NewMockVerifier()
		if model != "" {
			v.Model = model
		}
		return v, nil
	case "gemini":
		return NewGeminiVerifier(ctx, model, os.Getenv("GEMINI_API_KEY"))
	case "openai":
		return NewOpenAIVerifierWithClient(model, os.Getenv("OPENAI_API_KEY"), os.Getenv(EnvBaseURL), nil), nil
	default:
		return nil, fmt.Errorf("unsupported verifier provider: %s", provider)
	}
}

// FromEnv applies environment overrides to the configured provider and model,
// then wraps the verifier with retry and timeout.
func FromEnv(ctx context.Context, provider, model string, opts ...ResilientOption) (verify.Verifier, error) {
	if p := os.Getenv(EnvProvider); p != "" {
		provider = p
	}
	if m := os.Getenv(EnvModel); m != "" {
		model = m
	}

	inner, err := New(ctx, provider, model)
	if err != nil {
		return nil, err
	}
	return NewResilientVerifier(inner, opts...), nil
}
