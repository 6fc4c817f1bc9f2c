package fastx

import (
	"fmt"
	"strconv"
	"strings"
)

// SAM flag bits.
const (
	FlagPaired        = 0x1
	FlagProperPair    = 0x2
	FlagUnmapped      = 0x4
	FlagMateUnmapped  = 0x8
	FlagReverse       = 0x10
	FlagMateReverse   = 0x20
	FlagSecondary     = 0x100
	FlagSupplementary = 0x800
)

// Alignment is the subset of a SAM record the pipeline cares about.
type Alignment struct {
	Name  string
	Flag  int
	RName string
	Pos   int
	MapQ  int
	TLen  int
}

// ParseAlignment parses one SAM alignment line. Header lines (@...) are the
// caller's job to skip.
func ParseAlignment(line string) (Alignment, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return Alignment{}, fmt.Errorf("sam: short record (%d fields)", len(fields))
	}
	flag, err := strconv.Atoi(fields[1])
	if err != nil {
		return Alignment{}, fmt.Errorf("sam: bad flag %q: %w", fields[1], err)
	}
	pos, err := strconv.Atoi(fields[3])
	if err != nil {
		return Alignment{}, fmt.Errorf("sam: bad pos %q: %w", fields[3], err)
	}
	mapq, err := strconv.Atoi(fields[4])
	if err != nil {
		return Alignment{}, fmt.Errorf("sam: bad mapq %q: %w", fields[4], err)
	}
	tlen, err := strconv.Atoi(fields[8])
	if err != nil {
		return Alignment{}, fmt.Errorf("sam: bad tlen %q: %w", fields[8], err)
	}
	return Alignment{
		Name:  fields[0],
		Flag:  flag,
		RName: fields[2],
		Pos:   pos,
		MapQ:  mapq,
		TLen:  tlen,
	}, nil
}

// Primary reports whether this is a primary alignment of a fully mapped pair.
func (a Alignment) Primary() bool {
	const unwanted = FlagUnmapped | FlagMateUnmapped | FlagSecondary | FlagSupplementary
	return a.Flag&FlagPaired != 0 && a.Flag&unwanted == 0
}

// Orientation classifies the pair as FF, FR, RF or RR from the leftmost
// read's point of view. Only the leftmost primary alignment of a pair
// (TLEN > 0) yields an orientation; ok is false otherwise.
func (a Alignment) Orientation() (string, bool) {
	if !a.Primary() || a.TLen <= 0 {
		return "", false
	}
	strand := func(rev bool) byte {
		if rev {
			return 'R'
		}
		return 'F'
	}
	left := strand(a.Flag&FlagReverse != 0)
	right := strand(a.Flag&FlagMateReverse != 0)
	return string([]byte{left, right}), true
}
