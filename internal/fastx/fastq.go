package fastx

import (
	"bufio"
	"fmt"
	"io"
)

// FastqRecord is a single FASTQ read.
type FastqRecord struct {
	Name string
	Seq  []byte
	Qual []byte
}

// FastqReader reads four-line FASTQ records from a stream.
type FastqReader struct {
	s *bufio.Scanner
}

func NewFastqReader(r io.Reader) *FastqReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &FastqReader{s: s}
}

// Read returns the next record, or io.EOF at the end of the stream.
func (r *FastqReader) Read() (FastqRecord, error) {
	lines := make([]string, 0, 4)
	for len(lines) < 4 && r.s.Scan() {
		lines = append(lines, r.s.Text())
	}
	if len(lines) == 0 {
		if err := r.s.Err(); err != nil {
			return FastqRecord{}, err
		}
		return FastqRecord{}, io.EOF
	}
	if len(lines) < 4 {
		return FastqRecord{}, fmt.Errorf("fastq: truncated record near %q", lines[0])
	}
	if len(lines[0]) == 0 || lines[0][0] != '@' {
		return FastqRecord{}, fmt.Errorf("fastq: expected @name, got %q", lines[0])
	}
	rec := FastqRecord{
		Name: lines[0][1:],
		Seq:  []byte(lines[1]),
		Qual: []byte(lines[3]),
	}
	if len(rec.Seq) != len(rec.Qual) {
		return FastqRecord{}, fmt.Errorf("fastq: seq/qual length mismatch in %q", rec.Name)
	}
	return rec, nil
}

// meanQuality returns the mean Phred+33 quality of a read.
func meanQuality(qual []byte) float64 {
	if len(qual) == 0 {
		return 0
	}
	var sum int
	for _, q := range qual {
		sum += int(q) - 33
	}
	return float64(sum) / float64(len(qual))
}

// FilterOptions controls FilterPaired.
type FilterOptions struct {
	MinLength int     // drop pairs with a read shorter than this
	MaxLength int     // trim reads down to this length, 0 for no trim
	MinQual   float64 // drop pairs with a read of lower mean quality
	Limit     int64   // stop after examining this many pairs, 0 for all
}

// FilterPaired filters two synchronised FASTQ streams pairwise: a pair is
// kept only when both reads pass the length and quality cutoffs. Reads are
// trimmed to MaxLength before the checks. Returns the number of pairs kept.
func FilterPaired(in1, in2 io.Reader, out1, out2 io.Writer, opts FilterOptions) (int64, error) {
	r1 := NewFastqReader(in1)
	r2 := NewFastqReader(in2)

	var kept, seen int64
	for {
		if opts.Limit > 0 && seen >= opts.Limit {
			break
		}
		rec1, err1 := r1.Read()
		rec2, err2 := r2.Read()
		if err1 == io.EOF && err2 == io.EOF {
			break
		}
		if err1 == io.EOF || err2 == io.EOF {
			return kept, fmt.Errorf("fastq: paired files have different read counts")
		}
		if err1 != nil {
			return kept, err1
		}
		if err2 != nil {
			return kept, err2
		}
		seen++

		trim(&rec1, opts.MaxLength)
		trim(&rec2, opts.MaxLength)
		if len(rec1.Seq) < opts.MinLength || len(rec2.Seq) < opts.MinLength {
			continue
		}
		if meanQuality(rec1.Qual) < opts.MinQual || meanQuality(rec2.Qual) < opts.MinQual {
			continue
		}

		if err := writeFastq(out1, rec1); err != nil {
			return kept, err
		}
		if err := writeFastq(out2, rec2); err != nil {
			return kept, err
		}
		kept++
	}
	return kept, nil
}

func trim(rec *FastqRecord, maxLen int) {
	if maxLen > 0 && len(rec.Seq) > maxLen {
		rec.Seq = rec.Seq[:maxLen]
		rec.Qual = rec.Qual[:maxLen]
	}
}

func writeFastq(w io.Writer, rec FastqRecord) error {
	_, err := fmt.Fprintf(w, "@%s\n%s\n+\n%s\n", rec.Name, rec.Seq, rec.Qual)
	return err
}
