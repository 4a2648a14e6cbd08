package verifier

import (
	"context"
	"fmt"

	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

// UnavailableVerifier stands in for a provider that could not be built.
// Every proof fails with the construction error, so nothing is ever verified.
type UnavailableVerifier struct {
	Provider string
	Cause    error
}

func NewUnavailableVerifier(provider string, cause error) *UnavailableVerifier {
	return &UnavailableVerifier{Provider: provider, Cause: cause}
}

func (u *UnavailableVerifier) ID() string {
	return "unavailable:" + u.Provider
}

func (u *UnavailableVerifier) Verify(ctx context.Context, _ verify.Request) (*verify.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("verifier %s unavailable: %w", u.Provider, u.Cause)
}
