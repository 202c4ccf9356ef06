package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Requirement defines an external binary shotscribe shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to the binary to report its version.
	VersionArgs []string
}

// Status is the outcome of checking one Requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Version     string
	Detail      string
}

const versionTimeout = 5 * time.Second

// CheckBinaries resolves each requirement on PATH, in order. Available
// binaries that declare VersionArgs also report their version line.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	out := make([]Status, len(requirements))
	for i, req := range requirements {
		out[i] = check(ctx, req)
	}
	return out
}

func check(ctx context.Context, req Requirement) Status {
	s := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if s.Command == "" {
		s.Detail = "command not configured"
		return s
	}
	path, err := exec.LookPath(s.Command)
	if err != nil {
		s.Detail = fmt.Sprintf("%s not found on PATH", s.Command)
		return s
	}
	s.Available, s.Path = true, path
	if len(req.VersionArgs) > 0 {
		s.Version = ProbeVersion(ctx, path, req.VersionArgs...)
	}
	return s
}

// ProbeVersion runs binary with args and returns the first non-empty output
// line, or "" when the command fails.
func ProbeVersion(ctx context.Context, binary string, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
