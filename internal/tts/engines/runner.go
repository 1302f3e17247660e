package engines

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// runFunc runs an external command with stdin pre-filled and returns its
// stdout. Engines keep it in a field so tests can replace the subprocess.
type runFunc func(ctx context.Context, timeout time.Duration, stdin []byte, name string, args ...string) ([]byte, error)

// runCommand runs name to completion with a fresh process per call.
// Stdin is configured before start so the tool can never read an empty pipe.
func runCommand(ctx context.Context, timeout time.Duration, stdin []byte, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- cmd.Run()
	}()

	select {
	case err := <-done:
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s: %w", name, ctx.Err())
			}
			return nil, fmt.Errorf("%s failed: %w, stderr: %s", name, err, strings.TrimSpace(stderr.String()))
		}

	case <-ctx.Done():
		// Ask nicely first, then kill.
		if cmd.Process != nil {
			_ = cmd.Process.Signal(os.Interrupt)
			select {
			case <-done:
			case <-time.After(100 * time.Millisecond):
				_ = cmd.Process.Kill()
				<-done
			}
		}
		return nil, fmt.Errorf("%s: %w", name, ctx.Err())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%s produced no output, stderr: %s", name, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
