package actions

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/harrison/pilot/internal/models"
)

// destructiveCommand guards against commands that remove or overwrite state.
// It intentionally overlaps with the planner's detection: even if a plan was
// built elsewhere, the runner refuses unapproved destructive commands.
var destructiveCommand = regexp.MustCompile(`(?i)\brm\s+-[rf]|\bmkfs\b|\bdd\s+if=|--force\b|\bdrop\s+table\b|\btruncate\b|\bdel\s+/s\b`)

// CommandRunner executes run-command actions through the shell.
type CommandRunner struct {
	Dir string

	// AllowDestructive permits commands matched by the destructive guard.
	// Approval gating happens at the engine level; this is the hard floor
	// for plans that bypassed planning-time detection.
	AllowDestructive bool

	// Timeout bounds a single command (0 = 5 minutes).
	Timeout time.Duration
}

func (e *CommandRunner) Execute(ctx context.Context, action models.Action) Result {
	command := strings.TrimSpace(action.Command)
	if command == "" {
		return Result{Success: false, Error: "command is empty"}
	}

	if !e.AllowDestructive && destructiveCommand.MatchString(command) {
		return Result{Success: false, Error: fmt.Sprintf("refusing destructive command: %s", command)}
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.Dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{
			Success: false,
			Output:  string(output),
			Error:   fmt.Sprintf("command failed: %v", err),
		}
	}
	return Result{Success: true, Output: string(output)}
}
