package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lherron/foldermerge/internal/config"
	"github.com/lherron/foldermerge/internal/coordinator"
	"github.com/lherron/foldermerge/internal/domain"
	"github.com/lherron/foldermerge/internal/resolver"
)

// Exit codes per the external CLI contract.
const (
	exitSuccess        = 0
	exitPartialFailure = 1
	exitAborted        = 2
	exitUsageError     = 3
	exitFatalError     = 4
)

// exitCodeError carries the process exit code alongside the error message,
// for main to translate into os.Exit without cobra printing its own usage
// banner on top of it.
type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string { return e.err.Error() }
func (e exitCodeError) Unwrap() error { return e.err }

// ExitCode extracts the process exit code from an error returned by
// Execute, defaulting to exitFatalError for anything not raised as an
// exitCodeError.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if ce, ok := err.(exitCodeError); ok {
		return ce.code
	}
	return exitFatalError
}

var mergeCmd = &cobra.Command{
	Use:   "merge <source_a> <source_b> <destination>",
	Short: "Merge two source trees into a destination, resuming a prior run if one exists",
	Long: `Walks source_a and source_b, classifies every path found in either tree,
copies or recreates it under destination, and prompts (or applies a fixed
policy) for any path that conflicts between the two sides. Progress is
checkpointed in a SQLite database so an interrupted run can be resumed by
invoking the same command again against the same --db.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(3)(cmd, args); err != nil {
			return exitCodeError{code: exitUsageError, err: err}
		}
		return nil
	},
	RunE: runMerge,
}

var (
	mergeReset       bool
	mergeJobs        int
	mergeSerialApply bool
	mergeResolver    string
	mergeExclude     []string
)

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().BoolVar(&mergeReset, "reset", false, "Discard any existing run at --db and start fresh")
	mergeCmd.Flags().IntVar(&mergeJobs, "jobs", 0, "Worker pool size for hashing and applying (0 = number of CPUs)")
	mergeCmd.Flags().BoolVar(&mergeSerialApply, "serial-apply", false, "Wait for every conflict to be resolved before applying any ready path")
	mergeCmd.Flags().StringVar(&mergeResolver, "resolver", "interactive", "Conflict resolver: interactive, prefer-newer, or prefer-older")
	mergeCmd.Flags().StringSliceVar(&mergeExclude, "exclude", nil, "Glob pattern (repeatable) to exclude from both source trees")
}

func runMerge(cmd *cobra.Command, args []string) error {
	aRoot, bRoot, destRoot := args[0], args[1], args[2]

	res, err := buildResolver(mergeResolver, cmd)
	if err != nil {
		cmd.SilenceUsage = false
		return exitCodeError{code: exitUsageError, err: err}
	}

	cfg, err := config.Load()
	if err != nil {
		return exitCodeError{code: exitFatalError, err: fmt.Errorf("load config: %w", err)}
	}

	dbPath := cmd.Flag("db").Value.String()
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if dbPath == "" {
		dbPath = "merge_checkpoint.db"
	}

	jobs := mergeJobs
	if jobs == 0 {
		jobs = cfg.Jobs
	}

	opts := coordinator.Options{
		ARoot:        absOrSelf(aRoot),
		BRoot:        absOrSelf(bRoot),
		DestRoot:     absOrSelf(destRoot),
		DBPath:       dbPath,
		Reset:        mergeReset,
		Jobs:         jobs,
		SerialApply:  mergeSerialApply || cfg.SerialApply,
		ExcludeGlobs: mergeExclude,
		Resolver:     res,
	}

	c, run, mode, err := coordinator.Open(opts)
	if err != nil {
		switch err.(type) {
		case *domain.RootMismatchError, *domain.SchemaVersionMismatchError:
			return exitCodeError{code: exitUsageError, err: err}
		}
		return exitCodeError{code: exitFatalError, err: err}
	}
	defer c.Close()

	yellow := color.New(color.FgYellow, color.Bold)
	if mode == domain.ModeResumed {
		yellow.Fprintf(cmd.ErrOrStderr(), "resuming run %s\n", run.ID)
		for _, mismatch := range c.HashMismatches() {
			yellow.Fprintf(cmd.ErrOrStderr(), "warning: %v, re-applying\n", mismatch)
		}
	} else {
		yellow.Fprintf(cmd.ErrOrStderr(), "starting run %s\n", run.ID)
	}

	ctx, cancel := installShutdownHandler(cmd.ErrOrStderr())
	defer cancel()

	progressCh := make(chan domain.ProgressSnapshot, 8)
	done := make(chan struct{})
	go printProgress(cmd.ErrOrStderr(), progressCh, done)

	result, runErr := c.Run(ctx, run, progressCh)
	close(progressCh)
	<-done

	printSummary(cmd.OutOrStdout(), cmd.ErrOrStderr(), result)

	if runErr != nil && result.Aborted {
		return exitCodeError{code: exitAborted, err: runErr}
	}
	if _, ok := runErr.(*domain.StoreUnavailableError); ok {
		return exitCodeError{code: exitFatalError, err: runErr}
	}
	if runErr != nil {
		return exitCodeError{code: exitFatalError, err: runErr}
	}
	if result.Final.Failed > 0 {
		return exitCodeError{code: exitPartialFailure, err: fmt.Errorf("%d path(s) failed to apply", result.Final.Failed)}
	}
	return nil
}

func buildResolver(name string, cmd *cobra.Command) (resolver.Resolver, error) {
	switch name {
	case "interactive":
		return resolver.Interactive{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}, nil
	case "prefer-newer":
		return resolver.Policy{Choice: domain.ChoicePreferNewer}, nil
	case "prefer-older":
		return resolver.Policy{Choice: domain.ChoicePreferOlder}, nil
	default:
		return nil, fmt.Errorf("unknown resolver %q (want interactive, prefer-newer, or prefer-older)", name)
	}
}

func absOrSelf(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// installShutdownHandler returns a context cancelled on the first
// SIGINT/SIGTERM; a second signal within 2 seconds escalates to an
// immediate os.Exit(2), per the coordinator's shutdown contract.
func installShutdownHandler(stderr io.Writer) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Fprintln(stderr, "\nshutting down, waiting for in-flight work to commit (press again to force)...")
		cancel()

		select {
		case <-sigCh:
			fmt.Fprintln(stderr, "second interrupt received, exiting immediately")
			os.Exit(exitAborted)
		case <-time.After(2 * time.Second):
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// printProgress renders ProgressSnapshots as they arrive, one line per
// update, until ch closes. Closes done when it returns.
func printProgress(w io.Writer, ch <-chan domain.ProgressSnapshot, done chan<- struct{}) {
	defer close(done)
	cyan := color.New(color.FgCyan)
	for snap := range ch {
		cyan.Fprintf(w, "\rclassified=%d awaiting_decision=%d applied=%d failed=%d / total=%d",
			snap.Classified, snap.AwaitingDecision, snap.Applied, snap.Failed, snap.Total)
	}
	fmt.Fprintln(w)
}

// printSummary reports the final tallies and, for a run that left failures
// behind, the offending paths and their errors.
func printSummary(out, errOut io.Writer, result coordinator.Result) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	if result.Aborted {
		fmt.Fprintf(out, "run aborted: %d applied, %d failed, %d remaining\n",
			result.Final.Applied, result.Final.Failed, result.Final.Total-result.Final.Applied-result.Final.Failed)
		return
	}

	if result.Final.Failed == 0 {
		green.Fprintf(out, "merge complete: %d path(s) applied\n", result.Final.Applied)
		return
	}

	red.Fprintf(errOut, "merge finished with %d failure(s):\n", result.Final.Failed)
	for _, rec := range result.Failed {
		fmt.Fprintf(errOut, "  %s: %s\n", rec.RelPath, rec.Error)
	}
}
