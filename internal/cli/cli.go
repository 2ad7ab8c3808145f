package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/ponisha-watch/internal/config"
	"github.com/pfrederiksen/ponisha-watch/internal/filter"
	"github.com/pfrederiksen/ponisha-watch/internal/logger"
	"github.com/pfrederiksen/ponisha-watch/internal/notifier"
	"github.com/pfrederiksen/ponisha-watch/internal/scraper"
	"github.com/pfrederiksen/ponisha-watch/internal/storage"
	"github.com/pfrederiksen/ponisha-watch/internal/telegram"
	"github.com/pfrederiksen/ponisha-watch/internal/watcher"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// EnvFile is read into the environment before configuration is loaded
const EnvFile = ".env"

type options struct {
	configPath    string
	stateFile     string
	stateBackend  string
	maxProjects   int
	channel       string
	dryRun        bool
	skipMalformed bool
	format        string
	verbose       bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "ponisha-watch",
		Short: "Announce newly-posted Ponisha projects",
		Long: `Checks the Ponisha projects page once, sends a message for every listing
not seen on the previous run and records the current listings for the next one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&opts.stateFile, "state-file", "", "State file or database path (default \"last_sent\")")
	cmd.Flags().StringVar(&opts.stateBackend, "state-backend", "", "State backend: file or sqlite")
	cmd.Flags().IntVar(&opts.maxProjects, "max-projects", 0, "Maximum listings processed per run (default 25)")
	cmd.Flags().StringVar(&opts.channel, "channel", "", "Notification channel: telegram or twitter")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print messages without sending")
	cmd.Flags().BoolVar(&opts.skipMalformed, "skip-malformed", false, "Skip malformed listings instead of aborting")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging and print run metrics")

	return cmd
}

// runCheck is the main command logic
func runCheck(cmd *cobra.Command, opts *options) error {
	format := OutputFormat(strings.ToLower(opts.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", opts.format)
	}

	if err := config.LoadEnvFile(EnvFile); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, cmd, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if opts.verbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, closeStore, err := buildWatcher(cfg, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := w.Run(ctx)
	if err != nil {
		return err
	}

	var metrics map[string]interface{}
	if opts.verbose {
		metrics = w.Metrics().Snapshot()
	}
	if err := WriteOutput(cmd.OutOrStdout(), report, format, metrics); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// applyFlags overrides configuration with the flags given on the command line
func applyFlags(cfg *config.Config, cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	if flags.Changed("state-file") {
		cfg.State.Path = opts.stateFile
	}
	if flags.Changed("state-backend") {
		cfg.State.Backend = opts.stateBackend
	}
	if flags.Changed("max-projects") {
		cfg.MaxProjects = opts.maxProjects
	}
	if flags.Changed("channel") {
		cfg.Channel = opts.channel
	}
	if opts.dryRun {
		cfg.DryRun = true
	}
	if opts.skipMalformed {
		cfg.Scraper.SkipMalformed = true
	}
}

// buildWatcher wires the scraper, state store and notifier described by cfg.
// The returned func closes the state store.
func buildWatcher(cfg *config.Config, log *logger.Logger, out io.Writer) (*watcher.Watcher, func(), error) {
	sc := scraper.New(
		scraper.WithURL(cfg.PageURL),
		scraper.WithTimeout(cfg.Scraper.Timeout),
		scraper.WithLogger(log),
		scraper.WithSkipMalformed(cfg.Scraper.SkipMalformed),
	)

	n, err := newNotifier(cfg, out)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(cfg.State.Backend, cfg.State.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing storage: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Warn("could not close state store", logger.Fields{"error": err.Error()})
		}
	}

	w := watcher.New(sc, store, n,
		watcher.WithLogger(log),
		watcher.WithMaxProjects(cfg.MaxProjects),
		watcher.WithSendInterval(cfg.SendInterval),
		watcher.WithFilter(filter.New(cfg.Filter.Include, cfg.Filter.Exclude)),
	)
	return w, closeStore, nil
}

func newNotifier(cfg *config.Config, out io.Writer) (notifier.Notifier, error) {
	if cfg.DryRun {
		return notifier.NewDryRunNotifier(out), nil
	}

	switch strings.ToLower(cfg.Channel) {
	case config.ChannelTwitter:
		return notifier.NewTwitterNotifier(notifier.TwitterCredentials{
			APIKey:       cfg.Twitter.APIKey,
			APISecret:    cfg.Twitter.APISecret,
			AccessToken:  cfg.Twitter.AccessToken,
			AccessSecret: cfg.Twitter.AccessSecret,
		}, cfg.NotifyTimeout)
	default:
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			telegram.WithBaseURL(cfg.Telegram.APIURL),
			telegram.WithTimeout(cfg.NotifyTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("creating telegram client: %w", err)
		}
		return notifier.NewTelegramNotifier(client), nil
	}
}

// ExitCode maps an error returned by the root command to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitError
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().ExecuteContext(context.Background())
	if err != nil && !errors.Is(err, watcher.ErrFetch) {
		// Fetch failures were already logged by the watcher
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(ExitCode(err))
}
