package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kayz/perplex/internal/config"
	"github.com/kayz/perplex/internal/logger"
	"github.com/kayz/perplex/internal/output"
)

var (
	logLevel   string
	configPath string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "perplex",
	Short: "Ask questions, get answers grounded in live web results",
	Long: `perplex searches the web, reads the top pages and asks a language model
to answer with citations. Follow-up questions reuse the last few turns;
an empty follow-up starts a new topic and "exit" quits.

Commands:
  perplex              Start an interactive session (default)
  perplex search       Run a web search and print the results
  perplex fetch        Fetch pages and print the extracted text
  perplex audit        Show recorded turns
  perplex config       Show or initialize the configuration`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runInteractive,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.ConfigPath()
		}
		loaded, err := config.LoadFromPath(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		level := cfg.Logging.Level
		if cmd.Flags().Changed("log") {
			level = logLevel
		}
		closer, err := logger.Init(level, config.ResolvePath(cfg.Logging.File))
		if err != nil {
			return err
		}
		logCloser = closer
		logger.Debug("Config loaded from %s", path)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn",
		"Log level: trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: .perplex.yaml next to the executable)")
}

// newPrinter returns a stdout printer honoring output.color.
func newPrinter() *output.Printer {
	mode, err := output.ParseColorMode(cfg.Output.Color)
	if err != nil {
		logger.Warn("%v, falling back to auto", err)
	}
	return output.NewPrinter(os.Stdout, mode)
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
