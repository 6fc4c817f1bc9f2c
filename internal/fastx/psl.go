package fastx

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PSLMatch is one alignment line of blat's PSL output.
type PSLMatch struct {
	Matches    int
	Mismatches int
	RepMatches int
	QName      string
	QSize      int
	QStart     int
	QEnd       int
	TName      string
	TSize      int
	TStart     int
	TEnd       int
}

// ParsePSL parses one PSL data line (21 tab-separated columns).
func ParsePSL(line string) (PSLMatch, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 17 {
		return PSLMatch{}, fmt.Errorf("psl: short record (%d fields)", len(fields))
	}
	ints := make([]int, 17)
	for _, i := range []int{0, 1, 2, 10, 11, 12, 14, 15, 16} {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return PSLMatch{}, fmt.Errorf("psl: bad field %d %q: %w", i, fields[i], err)
		}
		ints[i] = v
	}
	return PSLMatch{
		Matches:    ints[0],
		Mismatches: ints[1],
		RepMatches: ints[2],
		QName:      fields[9],
		QSize:      ints[10],
		QStart:     ints[11],
		QEnd:       ints[12],
		TName:      fields[13],
		TSize:      ints[14],
		TStart:     ints[15],
		TEnd:       ints[16],
	}, nil
}

// Identity returns the fraction of aligned bases that match.
func (m PSLMatch) Identity() float64 {
	aligned := m.Matches + m.RepMatches + m.Mismatches
	if aligned == 0 {
		return 0
	}
	return float64(m.Matches+m.RepMatches) / float64(aligned)
}

// QueryCoverage returns the aligned fraction of the query sequence.
func (m PSLMatch) QueryCoverage() float64 {
	if m.QSize == 0 {
		return 0
	}
	return float64(m.QEnd-m.QStart) / float64(m.QSize)
}

// PSLReader reads PSL data lines, skipping the optional header block.
type PSLReader struct {
	s *bufio.Scanner
}

func NewPSLReader(r io.Reader) *PSLReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &PSLReader{s: s}
}

// Read returns the next match, or io.EOF. Non-data lines (psLayout header,
// separators) are skipped.
func (r *PSLReader) Read() (PSLMatch, error) {
	for r.s.Scan() {
		line := r.s.Text()
		if line == "" {
			continue
		}
		first, _, _ := strings.Cut(line, "\t")
		if _, err := strconv.Atoi(first); err != nil {
			continue // header or separator line
		}
		return ParsePSL(line)
	}
	if err := r.s.Err(); err != nil {
		return PSLMatch{}, err
	}
	return PSLMatch{}, io.EOF
}
