package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"redundans/internal/fastx"
)

var statsCmd = &cobra.Command{
	Use:   "stats [fasta...]",
	Short: "Report assembly statistics for FASTA files",
	Long: `Stats prints a TSV table with contig counts, bases, GC content,
N50/N90 and related numbers for each given FASTA file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	fmt.Println(fastx.StatsHeader)
	for _, fn := range args {
		f, err := os.Open(fn)
		if err != nil {
			return err
		}
		stats, err := fastx.Stat(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("stats %s: %w", fn, err)
		}
		fmt.Println(stats.Row(fn))
	}
	return nil
}
