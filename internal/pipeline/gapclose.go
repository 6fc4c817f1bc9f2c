package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"redundans/internal/fastx"
)

// gapClose runs GapCloser per library group, chaining outputs, and links
// the final result to filledPath. Groups with no usable library (wrong
// orientation, nothing surviving the read filter) are skipped.
func (p *Pipeline) gapClose(ctx context.Context, groups []LibraryGroup, scaffoldsPath, filledPath string) error {
	cfg := p.cfg.GapClosing
	pout := scaffoldsPath

	for i := range groups {
		configFn := filepath.Join(p.outdir, fmt.Sprintf("_gapcloser.%d.conf", i+1))
		ok, err := p.prepareGapCloser(configFn, i+1, groups[i].Libs)
		if err != nil {
			return err
		}
		if !ok {
			p.logger.Info("no usable libraries for gap closing", zap.Int("group", i+1))
			continue
		}

		for j := 1; j <= cfg.Iters; j++ {
			p.logger.Info("gap closing iteration", zap.Int("group", i+1), zap.Int("iter", j))
			out := filepath.Join(p.outdir, fmt.Sprintf("_gapcloser.%d.%d.fa", i+1, j))
			args := []string{
				"-t", fmt.Sprint(p.threads),
				"-p", fmt.Sprint(cfg.Overlap),
				"-l", fmt.Sprint(cfg.MaxReadLen),
				"-a", pout,
				"-b", configFn,
				"-o", out,
			}
			if err := p.runLogged(ctx, out+".log", "", "GapCloser", args...); err != nil {
				return fmt.Errorf("gapcloser %d.%d: %w", i+1, j, err)
			}
			pout = out
		}
	}

	return symlink(pout, filledPath)
}

// prepareGapCloser filters the group's reads and writes the SOAPdenovo
// style config GapCloser expects. Returns false when no library qualifies.
func (p *Pipeline) prepareGapCloser(configFn string, group int, libs []Library) (bool, error) {
	cfg := p.cfg.GapClosing
	sections := []string{fmt.Sprintf("max_rd_len=%d", cfg.MaxReadLen)}

	for rank, lib := range libs {
		var reverseSeq int
		switch lib.Orientation {
		case "FR":
			reverseSeq = 0
		case "RF":
			reverseSeq = 1
		default:
			p.logger.Info("skipping unsupported library orientation",
				zap.String("orientation", lib.Orientation),
				zap.String("fastq_f", lib.FastqF),
				zap.String("fastq_r", lib.FastqR))
			continue
		}

		fn1, fn2, kept, err := p.filterLibraryReads(group, rank+1, lib)
		if err != nil {
			return false, err
		}
		if kept == 0 {
			continue
		}

		sections = append(sections, strings.Join([]string{
			"[LIB]",
			fmt.Sprintf("avg_ins=%d", lib.InsertSize),
			fmt.Sprintf("reverse_seq=%d", reverseSeq),
			"asm_flags=3",
			fmt.Sprintf("rank=%d", rank+1),
			"pair_num_cutoff=5",
			"map_len=35",
			"q1=" + fn1,
			"q2=" + fn2,
		}, "\n"))
	}

	if len(sections) < 2 {
		return false, nil
	}
	return true, os.WriteFile(configFn, []byte(strings.Join(sections, "\n")+"\n"), 0o644)
}

// filterLibraryReads writes length/quality filtered copies of the library
// for GapCloser and returns their paths with the surviving pair count.
func (p *Pipeline) filterLibraryReads(group, rank int, lib Library) (fn1, fn2 string, kept int64, err error) {
	cfg := p.cfg.GapClosing
	fn1 = filepath.Join(p.outdir, fmt.Sprintf("_gapcloser.%d.%d.%s.fq", group, rank, filepath.Base(lib.FastqF)))
	fn2 = filepath.Join(p.outdir, fmt.Sprintf("_gapcloser.%d.%d.%s.fq", group, rank, filepath.Base(lib.FastqR)))

	in1, err := os.Open(lib.FastqF)
	if err != nil {
		return "", "", 0, err
	}
	defer in1.Close()
	in2, err := os.Open(lib.FastqR)
	if err != nil {
		return "", "", 0, err
	}
	defer in2.Close()
	out1, err := os.Create(fn1)
	if err != nil {
		return "", "", 0, err
	}
	defer out1.Close()
	out2, err := os.Create(fn2)
	if err != nil {
		return "", "", 0, err
	}
	defer out2.Close()

	kept, err = fastx.FilterPaired(in1, in2, out1, out2, fastx.FilterOptions{
		MinLength: cfg.MinReadLen,
		MaxLength: cfg.MaxReadLen,
		MinQual:   float64(p.cfg.Scaffolding.MapQ),
		Limit:     p.limit,
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("filter %s - %s: %w", lib.FastqF, lib.FastqR, err)
	}
	if err := out1.Close(); err != nil {
		return "", "", 0, err
	}
	if err := out2.Close(); err != nil {
		return "", "", 0, err
	}
	return fn1, fn2, kept, nil
}
