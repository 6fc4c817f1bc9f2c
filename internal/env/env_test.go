package env

import (
	"path/filepath"
	"testing"
)

func TestWorkDir(t *testing.T) {
	dir, err := WorkDir()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dir) != ".redundans" {
		t.Errorf("WorkDir = %q, want .redundans leaf", dir)
	}
}
