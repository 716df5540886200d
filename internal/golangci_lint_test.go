package internal

import (
	"os"
	"os/exec"
	"testing"

	"github.com/Iron-Ham/triad/internal/testutil"
)

// TestGolangciLintCompliance runs golangci-lint over the whole module when
// the binary is available, and skips otherwise so plain 'go test ./...'
// works on machines without it.
func TestGolangciLintCompliance(t *testing.T) {
	testutil.SkipIfNoGolangciLint(t)

	cmd := exec.Command("golangci-lint", "run", "--allow-parallel-runners", "./...")
	cmd.Dir = projectRoot(t)
	// A throwaway build cache keeps the run writable on sandboxed runners.
	cmd.Env = append(os.Environ(), "GOCACHE="+t.TempDir())

	if output, err := cmd.CombinedOutput(); err != nil {
		t.Errorf("golangci-lint found issues:\n%s", output)
	}
}
