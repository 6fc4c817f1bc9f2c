package internal

import (
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"deps": false, "run": false, "stats": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestDepsFlagDefaults(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"root", "."},
		{"jobs", "0"},
		{"log", "deps.log"},
		{"sync", "false"},
	}
	for _, tt := range tests {
		f := depsCmd.Flags().Lookup(tt.flag)
		if f == nil {
			t.Fatalf("flag --%s missing", tt.flag)
		}
		if f.DefValue != tt.want {
			t.Errorf("--%s default = %q, want %q", tt.flag, f.DefValue, tt.want)
		}
	}
}

func TestRunRequiredFlags(t *testing.T) {
	for _, name := range []string{"fasta", "fastq"} {
		f := runCmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("flag --%s missing", name)
		}
		if f.Annotations[`cobra_annotation_bash_completion_one_required_flag`] == nil {
			t.Errorf("--%s not marked required", name)
		}
	}
}
