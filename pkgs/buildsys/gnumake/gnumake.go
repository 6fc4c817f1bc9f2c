package gnumake

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"redundans/pkgs/buildsys"
)

// Make wraps GNU make invocations in a source directory with chainable
// configuration.
type Make struct {
	SourceDir string
	makefile  string
	jobs      int
	env       map[string]string
	out       io.Writer
}

var _ buildsys.BuildSystem = (*Make)(nil)

// New creates a new Make helper rooted at dir.
func New(dir string) *Make {
	return &Make{
		SourceDir: dir,
		env:       map[string]string{},
		out:       os.Stdout,
	}
}

func (m *Make) Source(dir string) {
	m.SourceDir = dir
}

// Makefile selects a non-default makefile (make -f).
func (m *Make) Makefile(path string) *Make {
	m.makefile = path
	return m
}

// Jobs sets the parallelism passed through as -j. Zero leaves -j off.
func (m *Make) Jobs(n int) *Make {
	m.jobs = n
	return m
}

func (m *Make) Env(key, value string) {
	if m.env == nil {
		m.env = map[string]string{}
	}
	m.env[key] = value
}

func (m *Make) Output(w io.Writer) {
	m.out = w
}

// Clean runs make clean in the source directory.
func (m *Make) Clean(ctx context.Context) error {
	return m.run(ctx, m.args("clean", false))
}

// Build runs make -j <jobs> with the given targets in the source directory.
func (m *Make) Build(ctx context.Context, targets ...string) error {
	return m.run(ctx, m.args("", true, targets...))
}

// OutputDir returns where build artifacts land. Make builds in place.
func (m *Make) OutputDir() string {
	return m.SourceDir
}

func (m *Make) args(target string, parallel bool, targets ...string) []string {
	var args []string
	if m.makefile != "" {
		args = append(args, "-f", m.makefile)
	}
	if parallel && m.jobs > 0 {
		args = append(args, "-j", strconv.Itoa(m.jobs))
	}
	if target != "" {
		args = append(args, target)
	}
	args = append(args, targets...)
	return args
}

func (m *Make) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "make", args...)
	if m.SourceDir != "" {
		cmd.Dir = m.SourceDir
	}
	cmd.Stdout = m.out
	cmd.Stderr = m.out
	if len(m.env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), m.env)
	}
	return cmd.Run()
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
