//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

var posContainer = getenv("E2E_POS_SERVICE", "pos")

// restartPOSContainer restarts the POS service without draining its carts,
// so the next start has to reconcile the journal.
func restartPOSContainer(t *testing.T, ctx context.Context) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "docker", "compose", "restart", posContainer)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart %s failed: %v\n%s", posContainer, err, string(out))
	}
}
