package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harvestpath/harvestpath/internal/infrastructure/wiring"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/spf13/cobra"
)

// EnvUser names the default user when --user is not given.
const EnvUser = "HARVESTPATH_USER"

func loadServices(cmd *cobra.Command) (*wiring.AppServices, error) {
	root, err := getWorkspaceRoot()
	if err != nil {
		return nil, err
	}
	services, loadErr := wiring.BuildAppServices(cmd.Context(), root, slog.Default())
	if services == nil {
		return nil, fmt.Errorf("failed to build services: %w", loadErr)
	}
	if loadErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", loadErr)
	}
	return services, nil
}

// MockVerifierNote is printed whenever proofs are judged by the offline mock.
const MockVerifierNote = "Note: the mock verifier is active and accepts any photo. Set verifier.provider in .harvestpath/config.yaml to gemini or openai for real checks."

func warnIfMockVerifier(cmd *cobra.Command, services *wiring.AppServices) {
	if strings.HasPrefix(services.Verifier.ID(), "mock:") {
		fmt.Fprintln(cmd.ErrOrStderr(), MockVerifierNote)
	}
}

func getWorkspaceRoot() (string, error) {
	if rootPath != "" {
		abs, err := filepath.Abs(rootPath)
		if err != nil {
			return "", fmt.Errorf("invalid root %q: %w", rootPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("root %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("root %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

// currentUser resolves the user from --user, $HARVESTPATH_USER and $USER.
func currentUser() (string, error) {
	id := userID
	if id == "" {
		id = os.Getenv(EnvUser)
	}
	if id == "" {
		id = os.Getenv("USER")
	}
	if err := journey.ValidateUserID(id); err != nil {
		return "", MapError(err)
	}
	return id, nil
}
