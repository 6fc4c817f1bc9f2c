package fastx

import (
	"testing"
)

func TestParseAlignment(t *testing.T) {
	line := "read1\t99\tctg1\t100\t60\t8M\t=\t300\t208\tACGTACGT\tIIIIIIII"
	a, err := ParseAlignment(line)
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "read1" || a.Flag != 99 || a.RName != "ctg1" || a.Pos != 100 || a.MapQ != 60 || a.TLen != 208 {
		t.Errorf("alignment = %+v", a)
	}
}

func TestParseAlignmentShort(t *testing.T) {
	if _, err := ParseAlignment("read1\t99\tctg1"); err == nil {
		t.Fatal("want error for short record")
	}
}

func TestOrientation(t *testing.T) {
	tests := []struct {
		name   string
		flag   int
		tlen   int
		want   string
		wantOK bool
	}{
		// 0x1 paired, 0x20 mate reverse: forward-reverse, leftmost
		{"FR", FlagPaired | FlagMateReverse, 200, "FR", true},
		// 0x10 reverse, mate forward
		{"RF", FlagPaired | FlagReverse, 200, "RF", true},
		{"FF", FlagPaired, 200, "FF", true},
		{"RR", FlagPaired | FlagReverse | FlagMateReverse, 200, "RR", true},
		{"rightmost read skipped", FlagPaired | FlagMateReverse, -200, "", false},
		{"zero tlen skipped", FlagPaired, 0, "", false},
		{"unmapped skipped", FlagPaired | FlagUnmapped, 200, "", false},
		{"mate unmapped skipped", FlagPaired | FlagMateUnmapped, 200, "", false},
		{"secondary skipped", FlagPaired | FlagSecondary, 200, "", false},
		{"supplementary skipped", FlagPaired | FlagSupplementary, 200, "", false},
		{"unpaired skipped", 0, 200, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Alignment{Flag: tt.flag, TLen: tt.tlen}
			got, ok := a.Orientation()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Orientation() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
