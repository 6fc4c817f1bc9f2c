package internal

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"redundans/internal/config"
	"redundans/internal/pipeline"
	"redundans/internal/preflight"
)

var (
	runFastq      []string
	runFasta      string
	runOutdir     string
	runThreads    int
	runConfigFile string

	runIdentity  float64
	runOverlap   float64
	runMinLength int

	runJoins  int
	runLimit  float64
	runMapQ   int
	runIters  int
	runSSPACE string

	runNoReduction   bool
	runNoScaffolding bool
	runNoGapClosing  bool
	runNoPreflight   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the assembly pipeline",
	Long: `Run executes the full pipeline over a draft assembly and its paired
read libraries: reduction, scaffolding and gap closing, followed by a
statistics report for every intermediate file.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runFastq, "fastq", "i", nil, "Paired FASTQ files, F/R order (required)")
	runCmd.Flags().StringVarP(&runFasta, "fasta", "f", "", "Assembly FASTA file (required)")
	runCmd.Flags().StringVarP(&runOutdir, "outdir", "o", "redundans", "Output directory (must not exist)")
	runCmd.Flags().IntVarP(&runThreads, "threads", "t", 2, "Max threads to run")
	runCmd.Flags().StringVar(&runConfigFile, "config", "", "YAML config file")

	runCmd.Flags().Float64Var(&runIdentity, "identity", 0.8, "Reduction: min identity")
	runCmd.Flags().Float64Var(&runOverlap, "overlap", 0.75, "Reduction: min overlap")
	runCmd.Flags().IntVar(&runMinLength, "min-length", 200, "Reduction: min contig length")

	runCmd.Flags().IntVarP(&runJoins, "joins", "j", 5, "Scaffolding: min pairs to join contigs")
	runCmd.Flags().Float64VarP(&runLimit, "limit", "l", 0.2, "Scaffolding: align subset of reads")
	runCmd.Flags().IntVarP(&runMapQ, "mapq", "q", 10, "Scaffolding: min mapping quality")
	runCmd.Flags().IntVar(&runIters, "iters", 2, "Scaffolding iterations per library")
	runCmd.Flags().StringVar(&runSSPACE, "sspace", "SSPACE_Standard_v3.0.pl", "SSPACE script path")

	runCmd.Flags().BoolVar(&runNoReduction, "no-reduction", false, "Skip the reduction stage")
	runCmd.Flags().BoolVar(&runNoScaffolding, "no-scaffolding", false, "Skip the scaffolding stage")
	runCmd.Flags().BoolVar(&runNoGapClosing, "no-gapclosing", false, "Skip the gap closing stage")
	runCmd.Flags().BoolVar(&runNoPreflight, "no-preflight", false, "Skip external tool checks")

	_ = runCmd.MarkFlagRequired("fastq")
	_ = runCmd.MarkFlagRequired("fasta")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	for _, fn := range append([]string{runFasta}, runFastq...) {
		if _, err := os.Stat(fn); err != nil {
			return fmt.Errorf("no such file: %s", fn)
		}
	}

	if !runNoPreflight {
		if err := preflight.Check(ctx, preflight.PipelineTools); err != nil {
			return err
		}
	}

	p := pipeline.New(pipeline.Options{
		Config:          cfg,
		Fasta:           runFasta,
		Fastq:           runFastq,
		SkipReduction:   runNoReduction,
		SkipScaffolding: runNoScaffolding,
		SkipGapClosing:  runNoGapClosing,
		Logger:          logger,
		Report:          os.Stderr,
	})
	return p.Run(ctx)
}

// buildConfig layers flag values over the config file (or defaults).
// When a config file is in play, a flag wins only if the user set it.
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	path := runConfigFile
	if path == "" {
		path, _ = config.Find()
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
		logger.Info("loaded config", zap.String("path", path))
	}

	apply := func(name string, f func()) {
		if path == "" || cmd.Flags().Changed(name) {
			f()
		}
	}
	apply("threads", func() { cfg.Threads = runThreads })
	apply("outdir", func() { cfg.OutDir = runOutdir })
	apply("identity", func() { cfg.Reduction.Identity = runIdentity })
	apply("overlap", func() { cfg.Reduction.Overlap = runOverlap })
	apply("min-length", func() { cfg.Reduction.MinLength = runMinLength })
	apply("joins", func() { cfg.Scaffolding.Joins = runJoins })
	apply("limit", func() { cfg.Scaffolding.Limit = runLimit })
	apply("mapq", func() { cfg.Scaffolding.MapQ = runMapQ })
	apply("iters", func() { cfg.Scaffolding.Iters = runIters })
	apply("sspace", func() { cfg.Scaffolding.SSPACEBin = runSSPACE })
	return cfg, nil
}
