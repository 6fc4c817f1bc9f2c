// Package pipeline orchestrates the assembly pipeline: heterozygous
// reduction, scaffolding and gap closing, each stage delegating the heavy
// lifting to an external tool and chaining its output into the next.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"redundans/internal/config"
	"redundans/internal/fastx"
)

// Options configures a pipeline run.
type Options struct {
	Config config.Config
	Fasta  string   // input assembly
	Fastq  []string // paired FASTQ files, F/R interleaved order

	SkipReduction   bool
	SkipScaffolding bool
	SkipGapClosing  bool

	Logger *zap.Logger
	Report io.Writer // stats tables and stage banners, defaults to stderr
}

// Pipeline is one configured run.
type Pipeline struct {
	cfg    config.Config
	fasta  string
	fastq  []string
	outdir string

	skipReduction   bool
	skipScaffolding bool
	skipGapClosing  bool

	threads int
	limit   int64 // read alignment limit, derived from genome size

	logger *zap.Logger
	report io.Writer
}

// New builds a pipeline from options. Defaults are filled in here so Run
// can assume a complete configuration.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	report := opts.Report
	if report == nil {
		report = os.Stderr
	}
	threads := opts.Config.Threads
	if threads < 1 {
		threads = 1
	}
	return &Pipeline{
		cfg:             opts.Config,
		fasta:           opts.Fasta,
		fastq:           opts.Fastq,
		outdir:          opts.Config.OutDir,
		skipReduction:   opts.SkipReduction,
		skipScaffolding: opts.SkipScaffolding,
		skipGapClosing:  opts.SkipGapClosing,
		threads:         threads,
		logger:          logger,
		report:          report,
	}
}

// Run executes the pipeline. The output directory must not exist yet.
func (p *Pipeline) Run(ctx context.Context) error {
	if _, err := os.Stat(p.outdir); err == nil {
		return fmt.Errorf("output directory %s already exists", p.outdir)
	}
	if err := os.MkdirAll(p.outdir, 0o755); err != nil {
		return err
	}

	start := time.Now()
	man := &manifest{}

	contigs := filepath.Join(p.outdir, "contigs.fa")
	if err := symlink(p.fasta, contigs); err != nil {
		return err
	}

	if err := p.computeReadLimit(contigs); err != nil {
		return err
	}

	groups, err := estimateLibraries(ctx, p.logger, contigs, p.fastq, p.cfg.Scaffolding.MapQ, p.threads, p.limit)
	if err != nil {
		return fmt.Errorf("library estimation: %w", err)
	}
	p.logLibraries(groups)

	// Reduction.
	reduced := filepath.Join(p.outdir, "contigs.reduced.fa")
	stageStart := time.Now()
	if p.skipReduction {
		if err := symlink(contigs, reduced); err != nil {
			return err
		}
	} else {
		p.banner("Reduction")
		psl := filepath.Join(p.outdir, "_reduction.psl")
		report, err := reduce(ctx, contigs, reduced, psl, p.cfg.Reduction)
		if err != nil {
			return fmt.Errorf("reduction: %w", err)
		}
		fmt.Fprintln(p.report, reduceHeader)
		fmt.Fprintln(p.report, report.Row(contigs))
		man.record("reduction", reduced, stageStart)
	}

	// Scaffolding.
	scaffolds := filepath.Join(p.outdir, "scaffolds.fa")
	stageStart = time.Now()
	if p.skipScaffolding {
		if err := symlink(reduced, scaffolds); err != nil {
			return err
		}
	} else {
		p.banner("Scaffolding")
		groups, err = p.scaffold(ctx, groups, reduced, scaffolds)
		if err != nil {
			return fmt.Errorf("scaffolding: %w", err)
		}
		man.record("scaffolding", scaffolds, stageStart)
	}

	// Gap closing, only meaningful after scaffolding.
	filled := filepath.Join(p.outdir, "scaffolds.filled.fa")
	stageStart = time.Now()
	if p.skipGapClosing || len(groups) == 0 {
		if err := symlink(scaffolds, filled); err != nil {
			return err
		}
	} else {
		p.banner("Gap closing")
		if err := p.gapClose(ctx, groups, scaffolds, filled); err != nil {
			return fmt.Errorf("gap closing: %w", err)
		}
		man.record("gapclosing", filled, stageStart)
	}

	// Statistics over every intermediate and final FASTA.
	p.banner("Reporting statistics")
	if err := p.reportStats(contigs, reduced, scaffolds, filled); err != nil {
		return err
	}

	if err := man.save(p.outdir); err != nil {
		return err
	}
	p.logger.Info("pipeline finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// computeReadLimit derives the per-library alignment limit from the genome
// size and the configured fraction.
func (p *Pipeline) computeReadLimit(contigs string) error {
	if p.cfg.Scaffolding.Limit <= 0 {
		return nil
	}
	f, err := os.Open(contigs)
	if err != nil {
		return err
	}
	defer f.Close()
	stats, err := fastx.Stat(f)
	if err != nil {
		return err
	}
	p.limit = int64(p.cfg.Scaffolding.Limit * float64(stats.Bases))
	p.logger.Info("read alignment limit", zap.Int64("limit", p.limit))
	return nil
}

func (p *Pipeline) logLibraries(groups []LibraryGroup) {
	for i, g := range groups {
		for _, lib := range g.Libs {
			p.logger.Info("library",
				zap.Int("group", i+1),
				zap.String("name", lib.Name),
				zap.String("orientation", lib.Orientation),
				zap.Int("insert_size", lib.InsertSize),
				zap.Float64("stdev_frac", lib.StdevFrac))
		}
	}
}

// reportStats prints the stats table over the named files plus all
// intermediate stage outputs found in the output directory.
func (p *Pipeline) reportStats(contigs, reduced, scaffolds, filled string) error {
	fastas := []string{contigs, reduced}
	fastas = append(fastas, globSorted(filepath.Join(p.outdir, "_sspace.*.fa"))...)
	fastas = append(fastas, scaffolds)
	fastas = append(fastas, globSorted(filepath.Join(p.outdir, "_gapcloser.*.fa"))...)
	fastas = append(fastas, filled)

	fmt.Fprintln(p.report, fastx.StatsHeader)
	for _, fn := range fastas {
		f, err := os.Open(fn)
		if err != nil {
			return err
		}
		stats, err := fastx.Stat(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("stats %s: %w", fn, err)
		}
		fmt.Fprintln(p.report, stats.Row(fn))
	}
	return nil
}

func globSorted(pattern string) []string {
	matches, _ := filepath.Glob(pattern)
	sort.Strings(matches)
	return matches
}

// banner writes a timestamped stage separator to the report stream.
func (p *Pipeline) banner(stage string) {
	fmt.Fprintf(p.report, "\n%s\n[%s] %s...\n", strings.Repeat("#", 50), time.Now().Format(time.DateTime), stage)
	p.logger.Info("stage", zap.String("name", stage))
}

// runLogged runs an external tool with stdout and stderr captured in a log
// file next to the stage output.
func (p *Pipeline) runLogged(ctx context.Context, logPath, dir, name string, args ...string) error {
	log, err := os.Create(logPath)
	if err != nil {
		return err
	}
	defer log.Close()

	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Stdout = log
	cmd.Stderr = log
	return cmd.Run()
}

// symlink links oldname to newname, preferring an absolute source path and
// leaving an existing destination alone.
func symlink(oldname, newname string) error {
	if _, err := os.Lstat(newname); err == nil {
		return nil
	}
	if abs, err := filepath.Abs(oldname); err == nil {
		if _, statErr := os.Stat(abs); statErr == nil {
			oldname = abs
		}
	}
	return os.Symlink(oldname, newname)
}
