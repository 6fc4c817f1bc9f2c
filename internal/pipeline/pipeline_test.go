package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"redundans/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSymlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.fa")
	dst := filepath.Join(dir, "dst.fa")
	require.NoError(t, os.WriteFile(src, []byte(">a\nACGT\n"), 0o644))

	require.NoError(t, symlink(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, ">a\nACGT\n", string(data))

	// Linking again is a no-op, not an error.
	require.NoError(t, symlink(src, dst))

	// Relative targets stay relative (resolved against the link's dir).
	rel := filepath.Join(dir, "rel.fa")
	require.NoError(t, symlink("src.fa", rel))
	target, err := os.Readlink(rel)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(target))
}

func TestRunRefusesExistingOutdir(t *testing.T) {
	outdir := t.TempDir() // exists by construction
	cfg := config.Default()
	cfg.OutDir = outdir

	p := New(Options{Config: cfg, Fasta: "in.fa", Fastq: []string{"a_1.fq", "a_2.fq"}})
	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m, err := loadManifest(dir)
	require.NoError(t, err, "missing manifest loads empty")
	assert.Empty(t, m.Stages)

	started := time.Now().Add(-2 * time.Second)
	m.record("reduction", "contigs.reduced.fa", started)
	m.record("scaffolding", "scaffolds.fa", time.Now())
	require.NoError(t, m.save(dir))

	loaded, err := loadManifest(dir)
	require.NoError(t, err)
	require.Len(t, loaded.Stages, 2)
	assert.Equal(t, "reduction", loaded.Stages[0].Name)
	assert.Equal(t, "contigs.reduced.fa", loaded.Stages[0].Output)
	assert.Greater(t, loaded.Stages[0].ElapsedSec, 1.0)
}

func TestNewDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Threads = 0
	p := New(Options{Config: cfg})
	assert.Equal(t, 1, p.threads, "thread budget never below one")
	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.report)
}

func TestComputeReadLimit(t *testing.T) {
	dir := t.TempDir()
	fasta := filepath.Join(dir, "contigs.fa")
	// 1000 bases total
	require.NoError(t, os.WriteFile(fasta, []byte(">a\n"+string(seqOf(1000))+"\n"), 0o644))

	cfg := config.Default()
	cfg.Scaffolding.Limit = 0.2
	p := New(Options{Config: cfg})
	require.NoError(t, p.computeReadLimit(fasta))
	assert.Equal(t, int64(200), p.limit)
}

func seqOf(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'A'
	}
	return b
}
