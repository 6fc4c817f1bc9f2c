// Package preflight verifies that the external executables the pipeline
// shells out to are installed, and that they are recent enough where a
// minimum version is known.
package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// Requirement describes one external tool.
type Requirement struct {
	Name        string
	MinVersion  string   // semver without the v prefix, empty to skip the check
	VersionArgs []string // args that make the tool print its version
}

// PipelineTools lists the executables `redundans run` invokes.
var PipelineTools = []Requirement{
	{Name: "bwa", MinVersion: "0.7.0"},
	{Name: "blat"},
	{Name: "perl"},
	{Name: "GapCloser"},
}

// Check resolves every requirement on PATH and enforces minimum versions.
// The first failing requirement aborts the check.
func Check(ctx context.Context, reqs []Requirement) error {
	for _, req := range reqs {
		path, err := exec.LookPath(req.Name)
		if err != nil {
			return fmt.Errorf("required tool %s not found on PATH: %w", req.Name, err)
		}
		if req.MinVersion == "" {
			continue
		}
		got, err := toolVersion(ctx, path, req.VersionArgs)
		if err != nil {
			// A tool that won't report a version is not a hard failure.
			continue
		}
		if semver.Compare("v"+got, "v"+req.MinVersion) < 0 {
			return fmt.Errorf("%s %s is older than required %s", req.Name, got, req.MinVersion)
		}
	}
	return nil
}

var versionRe = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// toolVersion runs the tool and scrapes a dotted version from its output.
// Tools like bwa print usage (with the version) and exit non-zero, so the
// exit status is ignored when there is output to scrape.
func toolVersion(ctx context.Context, path string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	out, _ := cmd.CombinedOutput()
	return ExtractVersion(string(out))
}

// ExtractVersion pulls the first dotted version out of arbitrary tool
// output and canonicalises it to three components.
func ExtractVersion(out string) (string, error) {
	v := versionRe.FindString(out)
	if v == "" {
		return "", fmt.Errorf("no version in output")
	}
	if strings.Count(v, ".") == 1 {
		v += ".0"
	}
	if !semver.IsValid("v" + v) {
		return "", fmt.Errorf("unparseable version %q", v)
	}
	return v, nil
}
