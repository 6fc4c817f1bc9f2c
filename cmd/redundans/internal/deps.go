package internal

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"redundans/internal/deps"
)

var (
	depsRoot string
	depsJobs int
	depsLog  string
	depsSync bool
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Compile the bundled aligner dependencies",
	Long: `Deps compiles the bundled bwa and last sources by running make clean
and make -j N in each tool directory, strictly one after another. N defaults
to one less than the detected core count (at least 1). All build output goes
to the log file; the first failing invocation aborts the run and its exit
status is propagated.`,
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().StringVar(&depsRoot, "root", ".", "Directory containing the tool sources")
	depsCmd.Flags().IntVarP(&depsJobs, "jobs", "j", 0, "Make parallelism (0 = cores-1, min 1)")
	depsCmd.Flags().StringVar(&depsLog, "log", "deps.log", "Build log file")
	depsCmd.Flags().BoolVar(&depsSync, "sync", false, "Refresh tool sources (git submodules) first")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if depsSync {
		logger.Info("syncing tool sources", zap.String("root", depsRoot))
		if err := deps.Sync(ctx, depsRoot); err != nil {
			return err
		}
	}

	log, err := os.OpenFile(depsLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer log.Close()

	return deps.Build(ctx, deps.Options{
		Root:   depsRoot,
		Jobs:   depsJobs,
		Log:    log,
		Logger: logger,
	})
}
