// Package git reads staged changes from a local repository and commits them.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Repo is a working tree on local disk. An empty Dir means the current directory.
type Repo struct {
	Dir string
	// Bin is the git executable. Defaults to "git".
	Bin string
}

// StagedDiff returns the unified diff of the index against HEAD.
func (r *Repo) StagedDiff(ctx context.Context) (string, error) {
	return r.run(ctx, "diff", "--cached", "--no-color", "--no-ext-diff")
}

// Commit records the staged changes with the given message.
func (r *Repo) Commit(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("commit message is empty")
	}
	_, err := r.run(ctx, "commit", "-m", message)
	return err
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	bin := r.Bin
	if bin == "" {
		bin = "git"
	}
	sub := args[0]
	if r.Dir != "" {
		args = append([]string{"-C", r.Dir}, args...)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", sub, err, msg)
		}
		return "", fmt.Errorf("git %s: %w", sub, err)
	}
	return stdout.String(), nil
}
