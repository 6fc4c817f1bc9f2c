package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redundans/internal/config"
)

func TestWriteLibraryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libs.txt")
	fq := func(name string) string { return filepath.Join(dir, name) }
	libs := []Library{
		{Name: "lib1", FastqF: fq("a_1.fq"), FastqR: fq("a_2.fq"), Orientation: "FR", InsertSize: 300, StdevFrac: 0.2},
		{Name: "lib2", FastqF: fq("b_1.fq"), FastqR: fq("b_2.fq"), Orientation: "FR", InsertSize: 350, StdevFrac: 0.25},
	}
	require.NoError(t, writeLibraryFile(path, libs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"lib1 bwa "+fq("a_1.fq")+" "+fq("a_2.fq")+" 300 0.20 FR\n"+
			"lib2 bwa "+fq("b_1.fq")+" "+fq("b_2.fq")+" 350 0.25 FR\n",
		string(data))
}

func TestWriteLibraryFileAbsolutizesReads(t *testing.T) {
	tmp := t.TempDir()
	t.Chdir(tmp)
	wd, err := os.Getwd()
	require.NoError(t, err)

	path := filepath.Join(tmp, "libs.txt")
	libs := []Library{{Name: "lib1", FastqF: "a_1.fq", FastqR: "a_2.fq", Orientation: "FR", InsertSize: 300, StdevFrac: 0.2}}
	require.NoError(t, writeLibraryFile(path, libs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), filepath.Join(wd, "a_1.fq"))
	assert.Contains(t, string(data), filepath.Join(wd, "a_2.fq"))
}

// writeStub installs an executable shell script into dir.
func writeStub(t *testing.T, dir, name, script string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755))
}

// sspaceStub stands in for perl+SSPACE. It refuses any input path that does
// not resolve from its own working directory, then drops the expected
// results directory there.
const sspaceStub = `#!/bin/sh
while [ $# -gt 0 ]; do
	case "$1" in
	-l) lib="$2"; shift ;;
	-s) asm="$2"; shift ;;
	-b) base="$2"; shift ;;
	esac
	shift
done
[ -r "$asm" ] || exit 9
[ -r "$lib" ] || exit 9
while read -r name aln f1 f2 rest; do
	[ -r "$f1" ] || exit 9
	[ -r "$f2" ] || exit 9
done < "$lib"
mkdir -p "$base"
cp "$asm" "$base/$base.final.scaffolds.fasta"
`

// bwaStub answers index and mem well enough for insert size estimation.
const bwaStub = `#!/bin/sh
case "$1" in
index)
	touch "$2.bwt"
	;;
mem)
	printf '@SQ\tSN:ctg1\tLN:10000\n'
	printf 'r1\t99\tctg1\t100\t60\t44M\t=\t406\t350\t*\t*\n'
	printf 'r1\t147\tctg1\t406\t60\t44M\t=\t100\t-350\t*\t*\n'
	;;
esac
`

func TestScaffoldRelativeOutdir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	tmp := t.TempDir()
	t.Chdir(tmp)
	wd, err := os.Getwd()
	require.NoError(t, err)

	bin := filepath.Join(tmp, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	writeStub(t, bin, "perl", sspaceStub)
	writeStub(t, bin, "bwa", bwaStub)
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	require.NoError(t, os.MkdirAll("out", 0o755))
	const fasta = ">ctg1\nACGTACGTACGTACGTACGT\n"
	reduced := filepath.Join("out", "contigs.reduced.fa")
	require.NoError(t, os.WriteFile(reduced, []byte(fasta), 0o644))
	fn1, fn2 := writeFastqPair(t, wd, "pe", 3)

	cfg := config.Default()
	cfg.OutDir = "out"
	cfg.Scaffolding.Iters = 1
	p := New(Options{Config: cfg, Fastq: []string{fn1, fn2}})

	groups := []LibraryGroup{{Libs: []Library{{
		Name: "lib1", FastqF: fn1, FastqR: fn2,
		Orientation: "FR", InsertSize: 300, StdevFrac: 0.2,
	}}}}

	scaffolds := filepath.Join("out", "scaffolds.fa")
	got, err := p.scaffold(context.Background(), groups, reduced, scaffolds)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// The chain out/scaffolds.fa -> out/_sspace.1.1.fa -> results dir
	// must resolve to the assembly the stub copied through.
	data, err := os.ReadFile(scaffolds)
	require.NoError(t, err)
	assert.Equal(t, fasta, string(data))
}
