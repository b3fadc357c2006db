package historian

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"evo/internal/evoerr"
)

const (
	checkpointTimeout = 15 * time.Second
	maxFragmentLen    = 500
)

// safeFragment matches the allowed character set for an interpolated
// checkpoint-message field: alphanumerics, whitespace, and a short
// punctuation list (spec.md §4.10).
var safeFragment = regexp.MustCompile(`[^a-zA-Z0-9 .,:/_-]`)

// sanitize strips any character outside the safe set, collapses
// newlines to spaces, and truncates to maxFragmentLen — applied to
// every interpolated field before it reaches the checkpoint message.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = safeFragment.ReplaceAllString(s, "")
	if len(s) > maxFragmentLen {
		s = s[:maxFragmentLen]
	}
	return s
}

// Checkpointer produces a version-control checkpoint after a
// Generation Record is persisted. It shells out to git following the
// teacher's tactile.SafeExecutor / world.ScanGitHistory idiom:
// exec.CommandContext with an explicit working directory and captured
// combined output, never an interpolated shell string.
type Checkpointer struct {
	workspaceRoot string
}

// NewCheckpointer builds a Checkpointer rooted at workspaceRoot.
func NewCheckpointer(workspaceRoot string) *Checkpointer {
	return &Checkpointer{workspaceRoot: workspaceRoot}
}

// Checkpoint stages dir and commits, with message built from
// sanitized fragments. "nothing to commit" counts as success
// (spec.md §4.10) since it means the generation produced no working
// tree delta worth recording — rollback restored prior content, for
// instance.
func (c *Checkpointer) Checkpoint(ctx context.Context, dir string, rec GenerationRecord) error {
	addCtx, cancelAdd := context.WithTimeout(ctx, checkpointTimeout)
	defer cancelAdd()
	addCmd := exec.CommandContext(addCtx, "git", "add", "--", dir)
	addCmd.Dir = c.workspaceRoot
	if out, err := addCmd.CombinedOutput(); err != nil {
		return &evoerr.GitAddFailed{Output: string(out)}
	}

	message := buildMessage(rec)

	commitCtx, cancelCommit := context.WithTimeout(ctx, checkpointTimeout)
	defer cancelCommit()
	commitCmd := exec.CommandContext(commitCtx, "git", "commit", "--allow-empty", "-m", message, "--")
	commitCmd.Dir = c.workspaceRoot
	out, err := commitCmd.CombinedOutput()
	if err != nil {
		if isNothingToCommit(string(out)) {
			return nil
		}
		return &evoerr.GitCommitFailed{Output: string(out)}
	}
	return nil
}

func isNothingToCommit(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "nothing to commit") || strings.Contains(lower, "nothing added to commit")
}

func buildMessage(rec GenerationRecord) string {
	var b strings.Builder
	b.WriteString("evo: generation ")
	b.WriteString(strconv.Itoa(rec.GenerationNumber))
	b.WriteString(" target=")
	b.WriteString(sanitize(rec.TargetName))
	b.WriteString(" status=")
	b.WriteString(sanitize(rec.Status))
	if rec.Reasoning != "" {
		b.WriteString("\n\n")
		b.WriteString(sanitize(rec.Reasoning))
	}
	return b.String()
}
