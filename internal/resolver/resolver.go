// Package resolver shells out to pip-compile to expand a loose
// requirements file into a fully pinned set before synchronization.
package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// tunaSimpleIndex is passed to pip-compile when resolving against the
// CN mirrors, so resolution hits the same network the downloads will.
const tunaSimpleIndex = "https://mirrors.tuna.tsinghua.edu.cn/pypi/web/simple"

// ErrPipCompileMissing is returned when the pip-compile executable is
// not on PATH.
var ErrPipCompileMissing = errors.New("pip-compile not found; install pip-tools (pip install pip-tools)")

// Compile resolves the requirements file at path into pinned
// requirements content. useCNIndex points pip-compile at the CN simple
// index instead of the default one.
func Compile(ctx context.Context, path string, useCNIndex bool) (string, error) {
	args := []string{path, "-o", "-", "--no-header"}
	if useCNIndex {
		args = append(args, "-i", tunaSimpleIndex)
	}

	cmd := exec.CommandContext(ctx, "pip-compile", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrPipCompileMissing
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("pip-compile failed: %s", strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("running pip-compile: %w", err)
	}

	return stdout.String(), nil
}
