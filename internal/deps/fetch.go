package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Sync refreshes the bundled tool sources. The tools are tracked as git
// submodules of the source root, so a sync is a submodule update.
func Sync(ctx context.Context, root string) error {
	if _, err := gitOutput(ctx, root, "submodule", "update", "--init", "--recursive"); err != nil {
		return fmt.Errorf("sync tool sources: %w", err)
	}
	return nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
