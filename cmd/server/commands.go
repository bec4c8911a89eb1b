package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sentiment-dashboard/internal/analysis"
	"sentiment-dashboard/internal/api"
	"sentiment-dashboard/internal/config"
	"sentiment-dashboard/internal/llm"
	"sentiment-dashboard/internal/logging"
	"sentiment-dashboard/internal/service"
	"sentiment-dashboard/internal/state"
	"sentiment-dashboard/internal/warehouse"
)

// app holds everything the subcommands share.
type app struct {
	cfg          *config.Config
	conn         warehouse.Connector
	source       *service.ReviewSource
	orchestrator *service.Orchestrator
	closeLog     func()
}

func newRootCmd() *cobra.Command {
	var a app

	rootCmd := &cobra.Command{
		Use:          "sentiment-dashboard",
		Short:        "Review sentiment dashboard",
		Long:         "Loads scored product reviews from the warehouse and serves charts, a filterable table and a chat over the data.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(&a)
		},
	}

	rootCmd.AddCommand(newServeCmd(&a))
	rootCmd.AddCommand(newSummaryCmd(&a))
	rootCmd.AddCommand(newAskCmd(&a))

	return rootCmd
}

func (a *app) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}
	a.cfg = cfg

	logger, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Error().Err(err).Msg("failed to set up logging")
		return err
	}
	log.Logger = logger
	a.closeLog = closeLog

	a.conn, err = openConnector(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("strategy", cfg.AuthStrategy).Msg("failed to connect to warehouse")
		return err
	}

	client, err := llm.NewFactory(cfg).CreateClient(cfg.LLMProvider, cfg.LLMModel, a.conn)
	if err != nil {
		log.Error().Err(err).Msg("failed to create llm client")
		return err
	}

	a.source = service.NewReviewSource(a.conn, cfg.QueryTimeout)
	a.orchestrator = service.NewOrchestrator(client, cfg.CompletionTimeout)

	log.Info().
		Str("strategy", cfg.AuthStrategy).
		Str("provider", cfg.LLMProvider).
		Str("model", cfg.LLMModel).
		Msg("initialised")
	return nil
}

func (a *app) close() error {
	var err error
	if a.conn != nil {
		err = a.conn.Close()
	}
	if a.closeLog != nil {
		a.closeLog()
	}
	return err
}

func openConnector(ctx context.Context, cfg *config.Config) (warehouse.Connector, error) {
	switch cfg.AuthStrategy {
	case config.AuthCredentials:
		creds, err := warehouse.LoadCredentials(cfg.SecretsFile, cfg.SecretsSection)
		if err != nil {
			return nil, err
		}
		log.Info().Str("account", creds.String()).Msg("using explicit credentials")
		return warehouse.NewExplicit(creds, nil), nil
	default:
		return warehouse.OpenDelegated(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(a)
		},
	}
}

func runServe(a *app) error {
	sessions := state.NewStore(a.cfg.SessionTTL, a.cfg.MaxSessions)
	handler := api.NewHandler(a.source, a.orchestrator, sessions, a.cfg.ContextRows, a.cfg.HistogramBins)
	router := api.NewRouter(handler, a.cfg.CORSOrigins)

	log.Info().
		Str("addr", "http://localhost:"+a.cfg.Port).
		Strs("cors", a.cfg.CORSOrigins).
		Msg("starting dashboard")

	if err := http.ListenAndServe(":"+a.cfg.Port, router); err != nil {
		log.Error().Err(err).Msg("server failed")
		return err
	}
	return nil
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Load the review table once and print its shape, product means and chat context",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.source.LoadDataset(cmd.Context(), a.cfg.ContextRows)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded reviews: %d rows, %d columns\n\n", ds.Table.Len(), len(ds.Table.Columns()))

			means, err := analysis.MeanByCategory(ds.Table)
			if err != nil {
				fmt.Fprintf(out, "Could not compute product means: %v\n", err)
			} else {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "PRODUCT\tMEAN\tREVIEWS")
				for _, m := range means {
					fmt.Fprintf(w, "%s\t%.3f\t%d\n", m.Category, m.Mean, m.Count)
				}
				w.Flush()
			}

			fmt.Fprintf(out, "\nChat context:\n%s\n", ds.PromptContext)
			return nil
		},
	}
}

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask one question about the review table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.source.LoadDataset(cmd.Context(), a.cfg.ContextRows)
			if err != nil {
				return err
			}

			conv := service.NewConversation(a.orchestrator, ds.PromptContext)
			defer conv.Close()

			reply, err := conv.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}
