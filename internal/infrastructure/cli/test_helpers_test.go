package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/harvestpath/harvestpath/pkg/verifier"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func resetFlags() {
	rootPath, userID, verbose = "", "", false
	cropsSeason, cropsJSON = "", false
	journeyJSON, proofMIME = false, ""
	ledgerJSON, ledgerLimit = false, 0
	mcpTransport, mcpAddr = "stdio", ":8080"
}

// runCLI executes the root command against a workspace and returns its stdout.
func runCLI(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLIWithStderr(t, root, args...)
	return out, err
}

func runCLIWithStderr(t *testing.T, root string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out, errOut bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&errOut)
	RootCmd.SetArgs(append([]string{"--root", root, "--user", "farmer1"}, args...))
	defer func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	}()

	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	t.Setenv(verifier.EnvProvider, "mock")
	t.Setenv(verifier.EnvModel, "")
	return t.TempDir()
}

func writeProof(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write proof: %v", err)
	}
	return path
}

func startJourney(t *testing.T, root, crop string) string {
	t.Helper()
	out, err := runCLI(t, root, "journey", "start", crop, "--json")
	if err != nil {
		t.Fatalf("journey start: %v", err)
	}
	var res struct {
		Journey struct {
			ID string `json:"id"`
		}
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode start result %q: %v", out, err)
	}
	if res.Journey.ID == "" {
		t.Fatalf("no journey id in %q", out)
	}
	return res.Journey.ID
}
