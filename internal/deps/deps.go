package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// versionTimeout bounds one version probe.
const versionTimeout = 3 * time.Second

// Requirement is an external encoder binary and how to ask it for a version.
type Requirement struct {
	Name    string
	Command string
	// VersionArgs are passed to the binary to print its version. Empty skips
	// the version probe.
	VersionArgs []string
	Optional    bool
}

// Status is the resolved state of one Requirement.
type Status struct {
	Requirement
	Available bool
	Path      string
	Version   string
	Detail    string
}

// Check resolves every requirement and, for binaries that exist, records the
// first line of their version output.
func Check(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		path, err := Resolve(req.Command)
		if err != nil {
			status.Detail = err.Error()
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		if len(req.VersionArgs) > 0 {
			if version, err := Version(ctx, path, req.VersionArgs...); err == nil {
				status.Version = version
			}
		}
		results = append(results, status)
	}
	return results
}

// Resolve returns the absolute path for command, searching PATH for bare names.
func Resolve(command string) (string, error) {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return "", fmt.Errorf("command not configured")
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", cmd)
	}
	return path, nil
}

// Version runs path with args and returns the first non-empty output line.
func Version(ctx context.Context, path string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", path, strings.Join(args, " "), err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s printed no version", path)
}
