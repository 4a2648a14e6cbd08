package wiring

import (
	"context"

	"github.com/harvestpath/harvestpath/internal/infrastructure/config"
	"github.com/harvestpath/harvestpath/pkg/domain/verify"
	"github.com/harvestpath/harvestpath/pkg/verifier"
)

// LoadVerifier builds the configured verifier wrapped with retry and timeout.
func LoadVerifier(ctx context.Context, cfg *config.Config) (verify.Verifier, error) {
	timeout, err := cfg.VerifierTimeout()
	if err != nil {
		return nil, err
	}
	delay, err := cfg.VerifierRetryDelay()
	if err != nil {
		return nil, err
	}

	opts := []verifier.ResilientOption{
		verifier.WithTimeout(timeout),
		verifier.WithRetryDelay(delay),
	}
	if cfg.Verifier.Retries > 0 {
		opts = append(opts, verifier.WithMaxAttempts(cfg.Verifier.Retries))
	}
	return verifier.FromEnv(ctx, cfg.Verifier.Provider, cfg.Verifier.Model, opts...)
}
