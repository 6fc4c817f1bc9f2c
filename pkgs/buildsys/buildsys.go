package buildsys

import (
	"context"
	"io"
)

// BuildSystem captures shared capabilities of native build helpers (Make,
// CMake, etc). It keeps the common lifecycle and env setup; implementations
// add their own extras.
type BuildSystem interface {
	// Basic paths.
	Source(dir string)

	// Environment helper.
	Env(key, val string)

	// Output redirects child process stdout/stderr.
	Output(w io.Writer)

	// Lifecycle.
	Clean(ctx context.Context) error
	Build(ctx context.Context, targets ...string) error

	// Where artifacts land.
	OutputDir() string
}
