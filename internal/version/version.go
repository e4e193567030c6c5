package version

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Version is the testgate tool version.
const Version = "0.1.0"

// DefaultMinimumNode is the lowest Node.js version the test runner supports.
const DefaultMinimumNode = "6.1.0"

// EnvironmentTooOldError is the fatal precondition failure raised when the
// executing runtime is below the required minimum. It aborts a run before
// any test file is collected or filtered.
type EnvironmentTooOldError struct {
	Current string
	Minimum string
}

func (e *EnvironmentTooOldError) Error() string {
	return fmt.Sprintf("runtime version %s is too old: version %s or newer is required", e.Current, e.Minimum)
}

// Compare compares two dotted version strings numerically, part by part.
// It returns -1 if a is older than b, 1 if newer and 0 if equal. A version
// with more parts wins when the shared prefix is equal.
func Compare(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		aVal, _ := strconv.Atoi(aParts[i])
		bVal, _ := strconv.Atoi(bParts[i])

		if aVal > bVal {
			return 1
		}
		if aVal < bVal {
			return -1
		}
	}

	switch {
	case len(aParts) > len(bParts):
		return 1
	case len(aParts) < len(bParts):
		return -1
	default:
		return 0
	}
}

// EnsureMinimum returns an EnvironmentTooOldError when current is older than
// minimum, nil otherwise.
func EnsureMinimum(current, minimum string) error {
	if Compare(current, minimum) < 0 {
		return &EnvironmentTooOldError{Current: current, Minimum: minimum}
	}
	return nil
}

// DetectNode asks the local node binary for its version and strips the
// leading "v" from output like "v6.1.0".
func DetectNode(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "node", "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to detect node version: %w", err)
	}
	return strings.TrimPrefix(strings.TrimSpace(string(out)), "v"), nil
}
