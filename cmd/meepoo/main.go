// meepoo
//
// Writes commit messages and change summaries with a local or remote
// OpenAI-compatible model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jxucoder/meepoo/internal/config"
	"github.com/jxucoder/meepoo/internal/history"
	"github.com/jxucoder/meepoo/pkg/llm"
	"github.com/jxucoder/meepoo/pkg/llm/openai"
)

var version = "dev"

// Persistent flag values. Empty/zero means "use config".
var (
	flagBaseURL  string
	flagAPIKey   string
	flagModel    string
	flagLogLevel string
	flagTimeout  time.Duration
)

// cfg is loaded once per invocation in the root PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "meepoo",
	Short: "meepoo - commit messages from your staged diff",
	Long: `meepoo asks an OpenAI-compatible model (LM Studio, Ollama, OpenAI, ...)
to describe your changes.

  meepoo commit                       Message for the staged diff
  meepoo commit --commit              ...and commit with it
  meepoo prompt "explain this repo"   Free-form prompt
  git diff | meepoo summarize         Summarize arbitrary change text
  meepoo serve                        HTTP API
  meepoo history                      Past generations
  meepoo config set KEY VALUE         Persist a setting`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBaseURL, "base-url", "", "Server root, without /v1/chat/completions (env MEEPOO_BASE_URL)")
	pf.StringVar(&flagAPIKey, "api-key", "", "Bearer token (env MEEPOO_API_KEY)")
	pf.StringVar(&flagModel, "model", "", "Model name (env MEEPOO_MODEL, default "+openai.DefaultModel+")")
	pf.StringVar(&flagLogLevel, "log-level", "", "trace, debug, info, warn, error (env MEEPOO_LOG_LEVEL)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "Deadline for the whole command, e.g. 90s (env MEEPOO_TIMEOUT)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	if flagBaseURL != "" {
		c.BaseURL = strings.TrimRight(flagBaseURL, "/")
	}
	if flagAPIKey != "" {
		c.APIKey = flagAPIKey
	}
	if flagModel != "" {
		c.Model = flagModel
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	if cmd.Flags().Changed("timeout") {
		c.Timeout = flagTimeout
	}
	cfg = c

	setupLogging(cfg.LogLevel)
	return nil
}

// setupLogging sends human-readable logs to stderr so stdout carries only
// the generated text.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// newClient validates the configuration and builds the generator.
func newClient() (*openai.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return openai.New(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
}

// commandContext applies the configured deadline and attaches the logger.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := log.Logger.WithContext(cmd.Context())
	if cfg.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// openHistory returns nil when history is disabled.
func openHistory() (*history.Store, error) {
	if !cfg.History {
		return nil, nil
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	return history.NewStore(cfg.DatabasePath)
}

// record stores a finished generation. Failures are logged, never returned:
// the text has already been produced.
func record(ctx context.Context, kind llm.Kind, model, input, output string) {
	store, err := openHistory()
	if err != nil {
		log.Warn().Err(err).Msg("History unavailable")
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	g := &history.Generation{Kind: kind, Model: model, Input: input, Output: output}
	if err := store.Record(ctx, g); err != nil {
		log.Warn().Err(err).Msg("Failed to record generation")
		return
	}
	log.Debug().Str("id", g.ID).Str("kind", string(kind)).Msg("Generation recorded")
}
