// Package cli provides the support command-line client.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/attachment"
	"github.com/spec-kit/support-portal/internal/backend"
	"github.com/spec-kit/support-portal/internal/config"
	"github.com/spec-kit/support-portal/internal/locale"
	"github.com/spec-kit/support-portal/internal/observability"
	"github.com/spec-kit/support-portal/internal/store"
	"github.com/spec-kit/support-portal/internal/ticket"
	"github.com/spec-kit/support-portal/internal/upload"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	apiURL  string
	lang    string
	verbose bool

	env *environment
)

// environment is what every command works with, built once per invocation.
type environment struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *backend.Client
	printer  *locale.Printer
	resolver *attachment.Resolver
	loader   *attachment.Loader
	uploader ticket.Uploader
	metrics  *observability.Metrics
	in       io.Reader
}

var rootCmd = &cobra.Command{
	Use:   "support",
	Short: "Talk to support from the terminal",
	Long: `support drives the customer-support backend from a terminal: chat with the
assistant, open tickets with attachments, track tickets and rate answers.

Configuration is read from the environment (and .env), e.g. API_URL, TUS_URL
and MEDIA_ACCESS_TYPE. Flags override it.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if env != nil && env.logger != nil {
			_ = env.logger.Sync()
		}
	},
}

func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiURL != "" {
		cfg.Backend.APIURL = apiURL
	}
	if verbose {
		cfg.Logger.Level = "debug"
	} else if os.Getenv("LOG_LEVEL") == "" {
		cfg.Logger.Level = "warn"
	}

	logger, err := observability.NewConsoleLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	client, err := backend.New(cfg.Backend.APIURL,
		backend.WithTimeout(cfg.Backend.Timeout()),
		backend.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("init backend client: %w", err)
	}

	catalog, err := locale.Load(cfg.Locale.Default)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	language := lang
	if language == "" {
		language = os.Getenv("LANG")
	}

	metrics := observability.NewMetrics()
	var uploader ticket.Uploader
	if cfg.Upload.TUSURL != "" {
		tus, err := upload.NewTUSClient(cfg.Upload.TUSURL, cfg.Upload.ChunkBytes, nil, logger)
		if err != nil {
			return fmt.Errorf("init upload client: %w", err)
		}
		uploader = upload.NewHandoff(tus, cfg.Upload.Concurrency, logger, metrics)
	}

	resolver := attachment.NewResolver(client, cfg.Backend.MediaAccess, logger)
	env = &environment{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		printer:  catalog.Printer(language),
		resolver: resolver,
		loader:   attachment.NewLoader(client, resolver, store.NewAttachmentMetadataStore(), logger),
		uploader: uploader,
		metrics:  metrics,
		in:       cmd.InOrStdin(),
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "support backend base URL (default $API_URL)")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "message language, e.g. de (default $LANG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(ticketCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(departmentsCmd)
	rootCmd.AddCommand(faqsCmd)
	rootCmd.AddCommand(promotionCmd)
	rootCmd.AddCommand(attachmentCmd)
}

// describe renders err for the terminal in the chosen language.
func describe(err error) error {
	if env == nil || env.printer == nil {
		return err
	}
	return fmt.Errorf("%s", env.printer.Describe(err))
}

func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
