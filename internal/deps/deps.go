// Package deps compiles the bundled third-party aligners by driving their
// native make-based build systems.
package deps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"redundans/pkgs/buildsys/gnumake"
)

// Tool is one bundled native dependency built with make.
type Tool struct {
	Name    string
	Dir     string   // subdirectory under the source root
	Targets []string // extra make targets, empty for the default target
}

// Tools returns the bundled tools in build order: the short-read aligner
// first, then the local aligner.
func Tools() []Tool {
	return []Tool{
		{Name: "bwa", Dir: "bwa"},
		{Name: "last", Dir: "last"},
	}
}

// Options configures a dependency build.
type Options struct {
	// Root is the directory containing the tool subdirectories.
	Root string

	// Jobs is the make parallelism. Zero means DefaultJobs().
	Jobs int

	// Log receives the raw stdout/stderr of every child invocation,
	// in invocation order.
	Log io.Writer

	Logger *zap.Logger
}

// DefaultJobs returns the make parallelism: one less than the detected
// core count, never below one.
func DefaultJobs() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Build compiles every bundled tool strictly sequentially, stopping at the
// first failure. The failed invocation's error is returned wrapped, so the
// child exit status stays recoverable via ExitCode.
func Build(ctx context.Context, opts Options) error {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	log := opts.Log
	if log == nil {
		log = io.Discard
	}

	writeLogHeader(log, jobs)

	for _, tool := range Tools() {
		start := time.Now()
		logger.Info("building dependency",
			zap.String("tool", tool.Name),
			zap.String("dir", tool.Dir),
			zap.Int("jobs", jobs))
		fmt.Fprintf(log, "\n### %s: %s (make -j %d)\n", time.Now().Format(time.DateTime), tool.Name, jobs)

		m := gnumake.New(filepath.Join(opts.Root, tool.Dir))
		m.Jobs(jobs)
		m.Output(log)

		if err := m.Clean(ctx); err != nil {
			return fmt.Errorf("clean %s: %w", tool.Name, err)
		}
		if err := m.Build(ctx, tool.Targets...); err != nil {
			return fmt.Errorf("build %s: %w", tool.Name, err)
		}

		logger.Info("dependency built",
			zap.String("tool", tool.Name),
			zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}

// ExitCode extracts the child process exit status from a build error.
// Errors that did not come from a child exit report 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
