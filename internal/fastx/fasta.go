// Package fastx provides the minimal sequence-format plumbing the pipeline
// needs: FASTA/FASTQ readers, assembly statistics, paired-read filtering and
// line parsers for the SAM and PSL outputs of the external aligners.
package fastx

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// FastaRecord is a single FASTA sequence.
type FastaRecord struct {
	ID  string
	Seq []byte
}

// FastaReader reads FASTA records from a stream.
type FastaReader struct {
	s      *bufio.Scanner
	header string
	done   bool
}

// NewFastaReader creates a FASTA reader. Lines of any length are accepted.
func NewFastaReader(r io.Reader) *FastaReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	return &FastaReader{s: s}
}

// Read returns the next record, or io.EOF after the last one.
func (r *FastaReader) Read() (FastaRecord, error) {
	if r.header == "" {
		for r.s.Scan() {
			line := strings.TrimSpace(r.s.Text())
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, ">") {
				return FastaRecord{}, fmt.Errorf("fasta: expected header, got %q", line)
			}
			r.header = line
			break
		}
		if r.header == "" {
			if err := r.s.Err(); err != nil {
				return FastaRecord{}, err
			}
			return FastaRecord{}, io.EOF
		}
	}

	rec := FastaRecord{ID: headerID(r.header)}
	r.header = ""
	for r.s.Scan() {
		line := strings.TrimSpace(r.s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			r.header = line
			return rec, nil
		}
		rec.Seq = append(rec.Seq, line...)
	}
	if err := r.s.Err(); err != nil {
		return FastaRecord{}, err
	}
	return rec, nil
}

func headerID(header string) string {
	id := strings.TrimPrefix(header, ">")
	if i := strings.IndexAny(id, " \t"); i >= 0 {
		id = id[:i]
	}
	return id
}

// WriteFasta writes a record wrapped at 60 columns.
func WriteFasta(w io.Writer, rec FastaRecord) error {
	if _, err := fmt.Fprintf(w, ">%s\n", rec.ID); err != nil {
		return err
	}
	const width = 60
	for i := 0; i < len(rec.Seq); i += width {
		end := i + width
		if end > len(rec.Seq) {
			end = len(rec.Seq)
		}
		if _, err := fmt.Fprintf(w, "%s\n", rec.Seq[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarises an assembly FASTA file.
type Stats struct {
	Contigs        int
	Bases          int64
	GC             float64 // percent of non-N bases
	ContigsOver1kb int
	BasesOver1kb   int64
	N50            int
	N90            int
	Ns             int64
	Longest        int
}

// StatsHeader is the TSV header matching Stats.Row.
const StatsHeader = "#fname\tcontigs\tbases\tGC [%]\tcontigs >1kb\tbases in contigs >1kb\tN50\tN90\tNs\tlongest"

// Row formats the stats as one TSV row for the given file name.
func (s Stats) Row(name string) string {
	return fmt.Sprintf("%s\t%d\t%d\t%.2f\t%d\t%d\t%d\t%d\t%d\t%d",
		name, s.Contigs, s.Bases, s.GC, s.ContigsOver1kb, s.BasesOver1kb,
		s.N50, s.N90, s.Ns, s.Longest)
}

// Stat computes assembly statistics over a FASTA stream. An empty stream
// yields zero stats, not an error.
func Stat(r io.Reader) (Stats, error) {
	var s Stats
	var gc int64
	var lengths []int

	fr := NewFastaReader(r)
	for {
		rec, err := fr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Stats{}, err
		}
		n := len(rec.Seq)
		s.Contigs++
		s.Bases += int64(n)
		lengths = append(lengths, n)
		if n > 1000 {
			s.ContigsOver1kb++
			s.BasesOver1kb += int64(n)
		}
		if n > s.Longest {
			s.Longest = n
		}
		for _, c := range rec.Seq {
			switch c {
			case 'G', 'C', 'g', 'c':
				gc++
			case 'N', 'n':
				s.Ns++
			}
		}
	}

	if s.Bases > s.Ns {
		s.GC = 100 * float64(gc) / float64(s.Bases-s.Ns)
	}
	s.N50 = nxx(lengths, s.Bases, 0.5)
	s.N90 = nxx(lengths, s.Bases, 0.9)
	return s, nil
}

// nxx returns the contig length at which the cumulative size crosses
// frac of the total (N50, N90).
func nxx(lengths []int, total int64, frac float64) int {
	if total == 0 {
		return 0
	}
	sorted := make([]int, len(lengths))
	copy(sorted, lengths)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	threshold := int64(frac * float64(total))
	var cum int64
	for _, n := range sorted {
		cum += int64(n)
		if cum >= threshold {
			return n
		}
	}
	return 0
}
