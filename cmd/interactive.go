package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kayz/perplex/internal/ai"
	"github.com/kayz/perplex/internal/config"
	"github.com/kayz/perplex/internal/conversation"
	"github.com/kayz/perplex/internal/fetch"
	"github.com/kayz/perplex/internal/logger"
	"github.com/kayz/perplex/internal/output"
	"github.com/kayz/perplex/internal/persist"
	"github.com/kayz/perplex/internal/pipeline"
	"github.com/kayz/perplex/internal/promptbuild"
	"github.com/kayz/perplex/internal/search"
)

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	printer := newPrinter()
	in := bufio.NewReader(os.Stdin)

	if strings.TrimSpace(cfg.AI.APIKey) == "" {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("%w: set %s or ai.api_key", config.ErrMissingAPIKey, config.APIKeyEnv(cfg.AI.Provider))
		}
		key, err := promptAPIKey(in, printer.Writer(), cfg.AI.Provider)
		if err != nil {
			return err
		}
		cfg.AI.APIKey = key
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(ctx, cfg, printer)
	if err != nil {
		return err
	}
	defer cleanup()

	session := &pipeline.Session{
		Pipeline: p,
		Machine:  conversation.NewMachine(&conversation.Log{}, cfg.Prompt.HistoryWindow),
		Printer:  printer,
		In:       in,
	}

	if cfg.Audit.Enabled {
		store, err := persist.NewAuditStore(config.ResolvePath(cfg.Audit.SQLitePath))
		if err != nil {
			logger.Warn("Audit disabled: %v", err)
		} else {
			defer store.Close()
			session.Audit = store
			session.SessionID = persist.NewSessionID()
			logger.Info("Audit session %s", session.SessionID)
		}
	}

	return session.Run(ctx)
}

// buildPipeline wires search, fetch, prompt assembly and inference from config.
func buildPipeline(ctx context.Context, cfg *config.Config, printer *output.Printer) (*pipeline.Pipeline, func(), error) {
	manager, err := search.NewManager(cfg.Search, search.NewRegistry())
	if err != nil {
		return nil, nil, fmt.Errorf("search: %w", err)
	}
	adapter := search.NewAdapter(manager, printer.Notice)

	fetcher, closer := fetch.New(cfg.Fetch)
	coordinator := &fetch.Coordinator{
		Fetcher:   fetcher,
		Workers:   cfg.Fetch.Workers,
		EarlyStop: cfg.Fetch.EarlyStop,
	}

	provider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		_ = closer.Close()
		return nil, nil, fmt.Errorf("ai: %w", err)
	}
	model := cfg.AI.Model
	if model == "" {
		model = ai.DefaultModel(cfg.AI.Provider)
	}
	logger.Info("Using %s model %s, search engines %v", provider.Name(), model, manager.ListEngines())

	p := pipeline.New(
		adapter,
		coordinator,
		&promptbuild.Assembler{
			MaxContentLength: cfg.Prompt.ContentMaxLength,
			IncludeFailures:  cfg.Prompt.IncludeFailures,
		},
		ai.NewClient(provider, model, cfg.AI.MaxTokens),
		printer,
		pipeline.Options{
			ResultCount:     cfg.Search.ResultCount,
			WebsitesToFetch: cfg.Fetch.WebsitesToFetch,
			System:          cfg.AI.SystemInstruction,
		},
	)
	return p, func() { _ = closer.Close() }, nil
}

// promptAPIKey asks for the inference key once. The key lives only for this process.
func promptAPIKey(in *bufio.Reader, out io.Writer, provider string) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		fmt.Fprintf(out, "🚨 Enter your %s API key (or set %s): ", providerLabel(provider), config.APIKeyEnv(provider))
		line, err := in.ReadString('\n')
		key := strings.TrimSpace(line)
		if key != "" {
			return key, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		fmt.Fprintln(out, "Value is required.")
	}
	return "", config.ErrMissingAPIKey
}

func providerLabel(provider string) string {
	name := ai.Canonical(provider)
	if name == "" {
		return "inference"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
