// Package cli implements the finsentry command tree. The commands wire the
// application services directly against the configured data source and
// generation backend; no API server is involved.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finsentry/aml-insight/internal/application/assessment"
	"github.com/finsentry/aml-insight/internal/application/conversation"
	appprofile "github.com/finsentry/aml-insight/internal/application/profile"
	"github.com/finsentry/aml-insight/internal/application/query"
	"github.com/finsentry/aml-insight/internal/config"
	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/infrastructure/datasource/csvstore"
	"github.com/finsentry/aml-insight/internal/infrastructure/datasource/postgres"
	"github.com/finsentry/aml-insight/internal/infrastructure/llm/llamaserver"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/pkg/errors"
	"github.com/finsentry/aml-insight/pkg/types/common"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// RootOptions holds the global CLI flags.
type RootOptions struct {
	ConfigPath   string
	OutputFormat string
	LogLevel     string
}

// Services carries the wired application services through the command tree.
type Services struct {
	Config   *config.Config
	Logger   logging.Logger
	Store    partner.Store
	Builder  *appprofile.Builder
	Resolver *appprofile.Resolver
	Basic    *assessment.Assessor
	Enhanced *assessment.ExplainableAssessor
	Answerer *query.Answerer
	Router   *conversation.Router

	closer func()
}

// Close releases the data source connection if the driver holds one.
func (s *Services) Close() {
	if s.closer != nil {
		s.closer()
	}
}

// NewRootCommand creates the root command with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "finsentry",
		Short:   "Customer risk profiling and AML analysis from the command line",
		Long:    "finsentry builds unified customer profiles from relational table exports,\nscores money-laundering risk with an explainable assessment pipeline, and\nanswers free-form questions grounded in the profile data.",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./config.yaml, env-only when absent)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newAssessCommand(opts),
		newProfileCommand(opts),
		newAskCommand(opts),
		newChatCommand(opts),
	)

	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildServices loads config and wires the full service graph for one
// command invocation.
func buildServices(cmd *cobra.Command, opts *RootOptions) (*Services, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	var store partner.Store
	var closer func()
	switch cfg.Data.Driver {
	case "postgres":
		pg, err := postgres.NewStore(cmd.Context(), cfg.Data.Postgres, log)
		if err != nil {
			return nil, err
		}
		store = pg
		closer = pg.Close
	default:
		store, err = csvstore.NewStore(cfg.Data.CSVDir, log)
		if err != nil {
			return nil, err
		}
	}

	client := llamaserver.NewClient(cfg.LLM, log)

	builder := appprofile.NewBuilder(store, log, nil)
	resolver := appprofile.NewResolver(store, log)
	basic := assessment.NewAssessor(resolver, client, log, nil)
	enhanced := assessment.NewExplainableAssessor(builder, client, cfg.LLM.ModelVersion, log, nil)
	answerer := query.NewAnswerer(builder, client, log, nil)
	router := conversation.NewRouter(enhanced, answerer, log, nil)

	return &Services{
		Config:   cfg,
		Logger:   log,
		Store:    store,
		Builder:  builder,
		Resolver: resolver,
		Basic:    basic,
		Enhanced: enhanced,
		Answerer: answerer,
		Router:   router,
		closer:   closer,
	}, nil
}

// printResult renders v according to --output: sanitized JSON, or the given
// plain-text rendering.
func printResult(cmd *cobra.Command, opts *RootOptions, v interface{}, text string) error {
	if opts.OutputFormat == "json" {
		data, err := common.MarshalSanitized(v)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "encoding output failed")
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Println(text)
	return nil
}
