package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// scaffold runs SSPACE over every library group in increasing insert size
// order, iterating per group. Each iteration consumes the previous output;
// library statistics are re-estimated between groups since scaffolding
// changes the reference the mate pairs map to. Returns the refreshed
// groups and links the final output to scaffoldsPath.
func (p *Pipeline) scaffold(ctx context.Context, groups []LibraryGroup, reducedPath, scaffoldsPath string) ([]LibraryGroup, error) {
	pout := reducedPath
	for i := 0; i < len(groups); i++ {
		group := groups[i]
		for j := 1; j <= p.cfg.Scaffolding.Iters; j++ {
			p.logger.Info("scaffolding iteration",
				zap.Int("group", i+1), zap.Int("iter", j),
				zap.Int("libraries", len(group.Libs)))

			base := fmt.Sprintf("_sspace.%d.%d", i+1, j)
			out := filepath.Join(p.outdir, base)
			libFile := out + ".libs.txt"
			if err := writeLibraryFile(libFile, group.Libs); err != nil {
				return nil, err
			}

			// SSPACE runs with the output directory as its cwd so the -b
			// results directory lands there. Input paths must be absolute
			// since the child resolves them from that cwd.
			absAssembly, err := filepath.Abs(pout)
			if err != nil {
				return nil, err
			}
			absLibs, err := filepath.Abs(libFile)
			if err != nil {
				return nil, err
			}
			args := []string{
				p.cfg.Scaffolding.SSPACEBin,
				"-l", absLibs,
				"-s", absAssembly,
				"-k", fmt.Sprint(p.cfg.Scaffolding.Joins),
				"-T", fmt.Sprint(p.threads),
				"-b", base,
			}
			if err := p.runLogged(ctx, out+".log", p.outdir, "perl", args...); err != nil {
				return nil, fmt.Errorf("sspace %s: %w", base, err)
			}

			// SSPACE drops its results in a directory named after -b.
			pout = out + ".fa"
			target := filepath.Join(base, base+".final.scaffolds.fasta")
			if err := symlink(target, pout); err != nil {
				return nil, err
			}
		}

		// Refresh insert size estimates against the new scaffolds. Mate
		// pair estimates in particular improve once short-range joins
		// are in place.
		refreshed, err := estimateLibraries(ctx, p.logger, pout, p.fastq, p.cfg.Scaffolding.MapQ, p.threads, p.limit)
		if err != nil {
			return nil, fmt.Errorf("re-estimate libraries after group %d: %w", i+1, err)
		}
		groups = refreshed
	}

	if err := symlink(pout, scaffoldsPath); err != nil {
		return nil, err
	}
	return groups, nil
}

// writeLibraryFile writes the SSPACE library description file. Read paths
// go in absolute since SSPACE resolves them from its own cwd.
func writeLibraryFile(path string, libs []Library) error {
	var sb strings.Builder
	for _, lib := range libs {
		fq1, err := filepath.Abs(lib.FastqF)
		if err != nil {
			return err
		}
		fq2, err := filepath.Abs(lib.FastqR)
		if err != nil {
			return err
		}
		lib.FastqF, lib.FastqR = fq1, fq2
		sb.WriteString(lib.sspaceLine())
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
