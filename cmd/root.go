package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iksnae/commit-mirror/internal"
	"github.com/iksnae/commit-mirror/internal/report"
	"github.com/iksnae/commit-mirror/internal/vcs"
	"github.com/spf13/cobra"
)

var (
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootOptions holds the raw flag values of the root command
type rootOptions struct {
	configPath     string
	sourceDir      string
	newDir         string
	watch          bool
	verbose        bool
	branch         string
	remote         string
	backend        string
	order          string
	naming         string
	quietWindow    time.Duration
	commandTimeout time.Duration
	ledger         bool
	report         string
}

// rootCmd represents the base command
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	defaults := internal.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "commit-mirror --sourceDir=<source directory> --newDir=<new directory>",
		Short: "Mirror new commits of a repository into per-file logs in another repository",
		Long: `Mirror new commits from a source git repository into a target repository.

For every commit on the local branch that has not been pushed to its remote
counterpart yet, commit-mirror appends a record (hash, message, author, date)
to a log file in the target directory named after each changed file, then
commits that log file in the target repository with the original message.
Records already present in a log are never written twice.

With --watch, commit-mirror keeps running and re-syncs shortly after anything
changes in the source repository's .git directory.

Examples:
  commit-mirror --sourceDir=./project --newDir=./project-log
  commit-mirror --sourceDir=./project --newDir=./project-log --watch
  commit-mirror --config mirror.yaml --report json`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			internal.SetVerbose(opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, reporter, err := buildConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, reporter, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.sourceDir, "sourceDir", "", "Specify the source directory containing the commits")
	flags.StringVar(&opts.newDir, "newDir", "", "Specify the new directory where the commits will be duplicated")
	flags.BoolVar(&opts.watch, "watch", false, "Enable watching for new commits")
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&opts.branch, "branch", defaults.Branch, "Local branch to mirror")
	flags.StringVar(&opts.remote, "remote", defaults.Remote, "Remote whose tracking branch marks the last synchronized point")
	flags.StringVar(&opts.backend, "backend", defaults.Backend, "Version-control backend (git, go-git)")
	flags.StringVar(&opts.order, "order", string(defaults.Order), "Processing order (chronological, resolver)")
	flags.StringVar(&opts.naming, "naming", string(defaults.Naming), "Log file naming (basename, path)")
	flags.DurationVar(&opts.quietWindow, "quiet-window", defaults.QuietWindow, "Quiet period before a watch-triggered sync")
	flags.DurationVar(&opts.commandTimeout, "command-timeout", defaults.CommandTimeout, "Timeout for each git invocation (0 disables)")
	flags.BoolVar(&opts.ledger, "ledger", false, "Keep a ledger of mirrored commits to skip re-reading them")
	flags.StringVar(&opts.report, "report", defaults.Report, "Summary format (text, md, yaml, json)")

	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	return 1
}

// buildConfig layers flags over the config file over defaults
func buildConfig(cmd *cobra.Command, opts *rootOptions) (*internal.Config, report.Reporter, error) {
	cfg, err := internal.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, &internal.ArgumentError{Flag: "config", Reason: err.Error()}
	}

	flags := cmd.Flags()
	if flags.Changed("sourceDir") {
		cfg.SourceDir = opts.sourceDir
	}
	if flags.Changed("newDir") {
		cfg.NewDir = opts.newDir
	}
	if flags.Changed("watch") {
		cfg.Watch = opts.watch
	}
	if flags.Changed("branch") {
		cfg.Branch = opts.branch
	}
	if flags.Changed("remote") {
		cfg.Remote = opts.remote
	}
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("order") {
		cfg.Order = internal.OrderPolicy(opts.order)
	}
	if flags.Changed("naming") {
		cfg.Naming = internal.NamingPolicy(opts.naming)
	}
	if flags.Changed("quiet-window") {
		cfg.QuietWindow = opts.quietWindow
	}
	if flags.Changed("command-timeout") {
		cfg.CommandTimeout = opts.commandTimeout
	}
	if flags.Changed("ledger") {
		cfg.Ledger = opts.ledger
	}
	if flags.Changed("report") {
		cfg.Report = opts.report
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	reporter, err := report.NewReporter(cfg.Report)
	if err != nil {
		return nil, nil, &internal.ArgumentError{Flag: "report", Reason: err.Error()}
	}

	return cfg, reporter, nil
}

func run(ctx context.Context, cfg *internal.Config, reporter report.Reporter, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := vcs.NewBackend(cfg.Backend, vcs.Options{
		Identity:       vcs.Signature{Name: cfg.Author.Name, Email: cfg.Author.Email},
		CommandTimeout: cfg.CommandTimeout,
	})
	if err != nil {
		return &internal.ArgumentError{Flag: "backend", Reason: err.Error()}
	}

	var pipelineOpts []internal.PipelineOption
	if cfg.Ledger {
		ledger, cleanup := openLedger(ctx, cfg, backend)
		if ledger != nil {
			defer cleanup()
			pipelineOpts = append(pipelineOpts, internal.WithLedger(ledger))
		}
	}

	pipeline := internal.NewPipeline(cfg, backend, pipelineOpts...)

	if !cfg.Watch {
		var summary *internal.Summary
		err := internal.ShowProgress(ctx, fmt.Sprintf("Mirroring new commits from %s", cfg.SourceDir), func() error {
			var runErr error
			summary, runErr = pipeline.Run(ctx)
			return runErr
		})
		if summary != nil && (err == nil || len(summary.Entries) > 0) {
			if reportErr := reporter.Report(summary, out); reportErr != nil {
				internal.LogWarn("Failed to write report: %v", reportErr)
			}
		}
		if err != nil {
			return err
		}
		printOutcome(summary, cfg.NewDir)
		return nil
	}

	gitDir := filepath.Join(cfg.SourceDir, ".git")
	scheduler := internal.NewScheduler(cfg.QuietWindow, func(ctx context.Context) error {
		internal.LogInfo("Change detected in %s", gitDir)
		summary, err := pipeline.Run(ctx)
		if summary != nil && len(summary.Entries) > 0 {
			if reportErr := reporter.Report(summary, out); reportErr != nil {
				internal.LogWarn("Failed to write report: %v", reportErr)
			}
		}
		return err
	})
	scheduler.Start(ctx)
	defer scheduler.Close()

	internal.PrintInfo(fmt.Sprintf("Watching for changes in %s. Press Ctrl+C to stop.", gitDir))

	// Pick up commits made while nothing was watching.
	scheduler.Notify()

	return internal.Watch(ctx, gitDir, scheduler.Notify)
}

// openLedger initializes the target repository so the ledger can live in its
// .git directory. Failures only disable the ledger.
func openLedger(ctx context.Context, cfg *internal.Config, backend vcs.Backend) (*internal.Ledger, func()) {
	if err := internal.NewCommitter(backend).EnsureInitialized(ctx, cfg.NewDir); err != nil {
		internal.PrintWarning(fmt.Sprintf("Ledger disabled: %v", err))
		return nil, nil
	}

	ledger, err := internal.OpenLedger(internal.LedgerPath(cfg.NewDir))
	if err != nil {
		internal.PrintWarning(fmt.Sprintf("Ledger disabled: %v", err))
		return nil, nil
	}

	return ledger, func() {
		if err := ledger.Close(); err != nil {
			internal.LogWarn("Failed to close ledger: %v", err)
		}
	}
}

// printOutcome closes a one-shot run with a status line
func printOutcome(summary *internal.Summary, newDir string) {
	if summary.Failed > 0 {
		internal.PrintError(fmt.Sprintf("%d commit(s) could not be mirrored; run again to retry", summary.Failed))
		return
	}
	internal.PrintSuccess(fmt.Sprintf("Mirrored %d new commit(s) into %s", summary.Committed, newDir))
}
