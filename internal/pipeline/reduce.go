package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"redundans/internal/config"
	"redundans/internal/fastx"
)

// ReduceReport summarises the reduction stage.
type ReduceReport struct {
	Contigs        int
	Bases          int64
	ReducedContigs int
	ReducedBases   int64
	DroppedShort   int
	DroppedSimilar int
}

// Row formats the report as one TSV row for the given file name.
func (r ReduceReport) Row(name string) string {
	return fmt.Sprintf("%s\t%d\t%d\t%d\t%d\t%d\t%d",
		name, r.Contigs, r.Bases, r.ReducedContigs, r.ReducedBases,
		r.DroppedShort, r.DroppedSimilar)
}

// reduceHeader is the TSV header matching ReduceReport.Row.
const reduceHeader = "#fname\tcontigs\tbases\thomozygous contigs\thomozygous bases\tshort dropped\tsimilar dropped"

// reduce removes heterozygous duplication: contigs that align to a longer
// contig with sufficient identity and coverage are dropped, as are contigs
// below the minimum length. blat does the all-vs-self similarity search.
func reduce(ctx context.Context, in, out, pslPath string, cfg config.Reduction) (ReduceReport, error) {
	var report ReduceReport

	if err := runBlat(ctx, in, pslPath); err != nil {
		return report, err
	}
	drop, err := redundantContigs(pslPath, cfg)
	if err != nil {
		return report, err
	}
	report.DroppedSimilar = len(drop)

	inf, err := os.Open(in)
	if err != nil {
		return report, err
	}
	defer inf.Close()
	outf, err := os.Create(out)
	if err != nil {
		return report, err
	}
	defer outf.Close()
	w := bufio.NewWriter(outf)

	fr := fastx.NewFastaReader(inf)
	for {
		rec, err := fr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return report, err
		}
		report.Contigs++
		report.Bases += int64(len(rec.Seq))
		if len(rec.Seq) < cfg.MinLength {
			report.DroppedShort++
			continue
		}
		if drop[rec.ID] {
			continue
		}
		report.ReducedContigs++
		report.ReducedBases += int64(len(rec.Seq))
		if err := fastx.WriteFasta(w, rec); err != nil {
			return report, err
		}
	}
	if err := w.Flush(); err != nil {
		return report, err
	}
	return report, outf.Close()
}

func runBlat(ctx context.Context, fasta, pslPath string) error {
	cmd := exec.CommandContext(ctx, "blat", fasta, fasta, pslPath, "-noHead")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("blat %s: %w\n%s", fasta, err, out)
	}
	return nil
}

// redundantContigs reads the self-alignment PSL and marks queries that are
// covered by a longer (or same-sized, later-named) target.
func redundantContigs(pslPath string, cfg config.Reduction) (map[string]bool, error) {
	f, err := os.Open(pslPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	drop := make(map[string]bool)
	pr := fastx.NewPSLReader(f)
	for {
		m, err := pr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if m.QName == m.TName {
			continue // self hit
		}
		if m.Identity() < cfg.Identity || m.QueryCoverage() < cfg.Overlap {
			continue
		}
		// Keep the longer contig. Ties break on name so only one side goes.
		if m.QSize < m.TSize || (m.QSize == m.TSize && m.QName > m.TName) {
			drop[m.QName] = true
		}
	}
	return drop, nil
}
