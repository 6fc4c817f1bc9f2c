package pipeline

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redundans/internal/config"
)

func pslRow(matches, mismatches int, q string, qSize int, t string, tSize int) string {
	f := make([]string, 21)
	for i := range f {
		f[i] = "0"
	}
	f[0] = strconv.Itoa(matches)
	f[1] = strconv.Itoa(mismatches)
	f[8] = "+"
	f[9] = q
	f[10] = strconv.Itoa(qSize)
	f[11] = "0"
	f[12] = strconv.Itoa(qSize) // full-length hit
	f[13] = t
	f[14] = strconv.Itoa(tSize)
	return strings.Join(f, "\t")
}

func TestRedundantContigs(t *testing.T) {
	psl := filepath.Join(t.TempDir(), "self.psl")
	rows := []string{
		pslRow(100, 0, "het2", 100, "het1", 400), // redundant: near-identical, shorter
		pslRow(100, 0, "uniq", 100, "uniq", 100), // self hit, ignored
		pslRow(60, 40, "div", 100, "het1", 400),  // identity too low
		pslRow(100, 0, "twinB", 100, "twinA", 100), // tie: name breaks it, only twinB goes
		pslRow(100, 0, "twinA", 100, "twinB", 100),
	}
	require.NoError(t, os.WriteFile(psl, []byte(strings.Join(rows, "\n")+"\n"), 0o644))

	cfg := config.Reduction{Identity: 0.8, Overlap: 0.75, MinLength: 50}
	drop, err := redundantContigs(psl, cfg)
	require.NoError(t, err)

	assert.True(t, drop["het2"])
	assert.False(t, drop["het1"], "longer contig survives")
	assert.False(t, drop["uniq"])
	assert.False(t, drop["div"])
	assert.True(t, drop["twinB"])
	assert.False(t, drop["twinA"])
}

func TestReduceReportRow(t *testing.T) {
	r := ReduceReport{Contigs: 10, Bases: 5000, ReducedContigs: 7, ReducedBases: 4000, DroppedShort: 1, DroppedSimilar: 2}
	assert.Equal(t, "in.fa\t10\t5000\t7\t4000\t1\t2", r.Row("in.fa"))
}
