package gnumake

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name     string
		makefile string
		jobs     int
		target   string
		parallel bool
		targets  []string
		want     []string
	}{
		{name: "clean", target: "clean", want: []string{"clean"}},
		{name: "clean ignores jobs", jobs: 4, target: "clean", want: []string{"clean"}},
		{name: "build default target", jobs: 3, parallel: true, want: []string{"-j", "3"}},
		{name: "build no jobs", parallel: true, want: nil},
		{name: "build with targets", jobs: 2, parallel: true, targets: []string{"bwa"}, want: []string{"-j", "2", "bwa"}},
		{name: "custom makefile", makefile: "Makefile.alt", jobs: 2, parallel: true, want: []string{"-f", "Makefile.alt", "-j", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(".")
			if tt.makefile != "" {
				m.Makefile(tt.makefile)
			}
			m.Jobs(tt.jobs)
			got := m.args(tt.target, tt.parallel, tt.targets...)
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeEnv(t *testing.T) {
	base := []string{"A=1", "B=2"}
	got := mergeEnv(base, map[string]string{"B": "3", "C": "4"})
	want := []string{"A=1", "B=3", "C=4"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("mergeEnv = %v, want %v", got, want)
	}
}

func TestCleanBuildE2E(t *testing.T) {
	if _, err := exec.LookPath("make"); err != nil {
		t.Skip("make not found in PATH")
	}

	dir := t.TempDir()
	makefile := `all:
	@touch built.txt

clean:
	@rm -f built.txt
`
	if err := os.WriteFile(filepath.Join(dir, "Makefile"), []byte(makefile), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New(dir)
	m.Jobs(2)
	var out strings.Builder
	m.Output(&out)

	ctx := context.Background()
	if err := m.Build(ctx); err != nil {
		t.Fatalf("Build: %v\n%s", err, out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "built.txt")); err != nil {
		t.Fatalf("built.txt not created: %v", err)
	}
	if err := m.Clean(ctx); err != nil {
		t.Fatalf("Clean: %v\n%s", err, out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "built.txt")); !os.IsNotExist(err) {
		t.Fatal("built.txt survived clean")
	}
	if got := m.OutputDir(); got != dir {
		t.Errorf("OutputDir = %q, want %q", got, dir)
	}
}

func TestBuildEnvOverride(t *testing.T) {
	if _, err := exec.LookPath("make"); err != nil {
		t.Skip("make not found in PATH")
	}

	dir := t.TempDir()
	makefile := `all:
	@echo "CC=$(CC)"

clean:
	@true
`
	if err := os.WriteFile(filepath.Join(dir, "Makefile"), []byte(makefile), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New(dir)
	m.Env("CC", "fake-cc")
	var out strings.Builder
	m.Output(&out)

	if err := m.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(out.String(), "CC=fake-cc") {
		t.Errorf("env not passed through, output: %q", out.String())
	}
}
