package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"redundans/internal/fastx"
)

// Library is one paired-end or mate-pair read library with its estimated
// insert size statistics.
type Library struct {
	Name        string
	FastqF      string
	FastqR      string
	Orientation string  // FF, FR, RF or RR
	InsertSize  int     // mean insert size
	Median      int     // median insert size
	StdevFrac   float64 // stdev/mean, clamped to 1.0
}

// LibraryGroup holds libraries of comparable insert size, scaffolded
// together in one pass.
type LibraryGroup struct {
	Libs []Library
}

// insertStats are the raw numbers scraped from a subsampled alignment.
type insertStats struct {
	fastqF, fastqR string
	median         float64
	mean           float64
	stdev          float64
	orientations   [4]int // FF, FR, RF, RR
	pairs          int
}

var orientationNames = [4]string{"FF", "FR", "RF", "RR"}

// pairFastq groups the flat -i file list into F/R pairs.
func pairFastq(fastq []string) ([][2]string, error) {
	if len(fastq) == 0 || len(fastq)%2 != 0 {
		return nil, fmt.Errorf("paired FASTQ files required, got %d files", len(fastq))
	}
	pairs := make([][2]string, 0, len(fastq)/2)
	for i := 0; i < len(fastq); i += 2 {
		pairs = append(pairs, [2]string{fastq[i], fastq[i+1]})
	}
	return pairs, nil
}

// estimateLibraries aligns a subsample of every read pair against the
// assembly and derives per-library insert statistics, then groups the
// libraries by increasing insert size. Alignments across pairs run
// concurrently, bounded by the thread budget.
func estimateLibraries(ctx context.Context, logger *zap.Logger, fasta string, fastq []string, mapq, threads int, limit int64) ([]LibraryGroup, error) {
	pairs, err := pairFastq(fastq)
	if err != nil {
		return nil, err
	}
	if err := ensureBWAIndex(ctx, fasta); err != nil {
		return nil, err
	}

	samplePairs := limit / 100
	if samplePairs < 10000 {
		samplePairs = 10000
	}

	stats := make([]insertStats, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	if threads < 1 {
		threads = 1
	}
	g.SetLimit(threads)
	for i, pair := range pairs {
		g.Go(func() error {
			s, err := estimateInsertSize(gctx, fasta, pair[0], pair[1], mapq, samplePairs)
			if err != nil {
				return fmt.Errorf("estimate %s - %s: %w", pair[0], pair[1], err)
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return groupLibraries(logger, stats), nil
}

// groupLibraries sorts libraries by median insert size and opens a new
// group whenever a library's median exceeds 1.5x the first insert size of
// the current group.
func groupLibraries(logger *zap.Logger, stats []insertStats) []LibraryGroup {
	sorted := make([]insertStats, len(stats))
	copy(sorted, stats)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].median < sorted[j].median })

	var groups []LibraryGroup
	n := 0
	for _, s := range sorted {
		if len(groups) == 0 || s.median > 1.5*float64(groups[len(groups)-1].Libs[0].InsertSize) {
			groups = append(groups, LibraryGroup{})
			n = 0
		}
		n++
		lib := Library{
			Name:        fmt.Sprintf("lib%d", n),
			FastqF:      s.fastqF,
			FastqR:      s.fastqR,
			Orientation: s.majorOrientation(logger),
			InsertSize:  int(s.mean),
			Median:      int(s.median),
			StdevFrac:   s.stdevFrac(logger),
		}
		last := len(groups) - 1
		groups[last].Libs = append(groups[last].Libs, lib)
	}
	return groups
}

// majorOrientation picks the dominant pair orientation, warning when it
// represents less than 90% of pairs.
func (s insertStats) majorOrientation(logger *zap.Logger) string {
	max, maxi := 0, 0
	total := 0
	for i, c := range s.orientations {
		total += c
		if c > max {
			max, maxi = c, i
		}
	}
	if total == 0 {
		return ""
	}
	frac := 100 * float64(max) / float64(total)
	if frac < 90 {
		logger.Warn("poor quality library: weak major orientation",
			zap.String("orientation", orientationNames[maxi]),
			zap.Float64("percent", frac),
			zap.String("fastq_f", s.fastqF),
			zap.String("fastq_r", s.fastqR))
	}
	return orientationNames[maxi]
}

// stdevFrac returns stdev/mean, warning on highly variable libraries and
// clamping to the 0..1 range SSPACE accepts.
func (s insertStats) stdevFrac(logger *zap.Logger) float64 {
	if s.mean == 0 {
		return 0
	}
	frac := s.stdev / s.mean
	if frac > 0.66 {
		logger.Warn("highly variable insert size",
			zap.Float64("mean", s.mean),
			zap.Float64("stdev", s.stdev),
			zap.String("fastq_f", s.fastqF),
			zap.String("fastq_r", s.fastqR))
	}
	if frac > 1 {
		frac = 1.0
	}
	return frac
}

// ensureBWAIndex builds the bwa index for fasta unless it already exists.
func ensureBWAIndex(ctx context.Context, fasta string) error {
	if _, err := os.Stat(fasta + ".bwt"); err == nil {
		return nil
	}
	cmd := exec.CommandContext(ctx, "bwa", "index", fasta)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("bwa index %s: %w\n%s", fasta, err, out)
	}
	return nil
}

// estimateInsertSize streams `bwa mem` output for a subsample of the pair
// and collects insert sizes and orientations from the leftmost primary
// alignments. The aligner is stopped once enough pairs were seen.
func estimateInsertSize(ctx context.Context, fasta, fq1, fq2 string, mapq int, maxPairs int64) (insertStats, error) {
	s := insertStats{fastqF: fq1, fastqR: fq2}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(cctx, "bwa", "mem", fasta, fq1, fq2)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s, err
	}
	if err := cmd.Start(); err != nil {
		return s, fmt.Errorf("bwa mem: %w", err)
	}

	inserts := s.readPairs(stdout, mapq, maxPairs)

	// Stop the aligner if we bailed early; its exit status is irrelevant
	// once we have enough pairs.
	cancel()
	_ = cmd.Wait()

	if s.pairs == 0 {
		return s, fmt.Errorf("no aligned pairs (mapq >= %d)", mapq)
	}

	s.median = median(inserts)
	s.mean, s.stdev = meanStdev(inserts)
	return s, nil
}

// readPairs scans SAM lines from r, counting orientations and collecting
// insert sizes from the leftmost primary alignment of every pair that
// clears mapq. Stops after maxPairs pairs when maxPairs is positive.
func (s *insertStats) readPairs(r io.Reader, mapq int, maxPairs int64) []float64 {
	var inserts []float64
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "@") {
			continue
		}
		aln, err := fastx.ParseAlignment(line)
		if err != nil {
			continue
		}
		if aln.MapQ < mapq {
			continue
		}
		orient, ok := aln.Orientation()
		if !ok {
			continue
		}
		for i, name := range orientationNames {
			if name == orient {
				s.orientations[i]++
			}
		}
		inserts = append(inserts, float64(aln.TLen))
		s.pairs++
		if maxPairs > 0 && int64(s.pairs) >= maxPairs {
			break
		}
	}
	return inserts
}

func median(v []float64) float64 {
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func meanStdev(v []float64) (mean, stdev float64) {
	if len(v) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean = sum / float64(len(v))
	var ss float64
	for _, x := range v {
		ss += (x - mean) * (x - mean)
	}
	stdev = math.Sqrt(ss / float64(len(v)))
	return mean, stdev
}

// sspaceLine formats the library for an SSPACE library file.
func (l Library) sspaceLine() string {
	return strings.Join([]string{
		l.Name, "bwa", l.FastqF, l.FastqR,
		strconv.Itoa(l.InsertSize),
		strconv.FormatFloat(l.StdevFrac, 'f', 2, 64),
		l.Orientation,
	}, " ")
}
