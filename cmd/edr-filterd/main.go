package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edr-filterd/filterd/internal/config"
	"github.com/edr-filterd/filterd/internal/httpapi"
	"github.com/edr-filterd/filterd/internal/rules"
	"github.com/edr-filterd/filterd/internal/store"
	"github.com/edr-filterd/filterd/internal/tracing"
	"github.com/edr-filterd/filterd/pkg/condition"
	"github.com/edr-filterd/filterd/pkg/ruleset"
	"github.com/edr-filterd/filterd/pkg/sigma"
)

func main() {
	var configFile string

	root := &cobra.Command{
		Use:   "edr-filterd",
		Short: "Compiled filter and detection engine for streaming events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (optional)")
	root.AddCommand(newValidateCmd(&configFile))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newValidateCmd builds the "validate" subcommand: it compiles every
// rule under a directory (or --rules-dir/config's rules_dir if unset)
// and reports the first compile error, without ever opening a database
// connection or serving traffic. Meant for CI and pre-deploy checks on
// a rules directory.
func newValidateCmd(configFile *string) *cobra.Command {
	var rulesDir string

	cmd := &cobra.Command{
		Use:   "validate [rules-dir]",
		Short: "Compile a rules directory and report any errors, without serving",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				rulesDir = args[0]
			}
			return validate(*configFile, rulesDir)
		},
	}
	cmd.Flags().StringVar(&rulesDir, "rules-dir", "", "directory of rule YAML files to validate (overrides config)")
	return cmd
}

func validate(configFile, rulesDirFlag string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dir := cfg.RulesDir
	if rulesDirFlag != "" {
		dir = rulesDirFlag
	}
	if dir == "" {
		return fmt.Errorf("validate: no rules directory given (pass one, --rules-dir, or set rules_dir in config)")
	}

	docs, err := rules.LoadDirRecursive(dir)
	if err != nil {
		return fmt.Errorf("validate: load %s: %w", dir, err)
	}
	if _, err := ruleset.Compile(docs, condition.NopTracer); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	fmt.Printf("ok: %d rule(s) under %s compiled cleanly\n", len(docs), dir)
	return nil
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "edr-filterd").Logger()

	db, err := store.Open(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	if cfg.MigrationsDir != "" {
		if err := store.RunMigrations(db.DB(), cfg.MigrationsDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	var docs []sigma.RuleDoc
	if cfg.RulesDir != "" {
		if fromDisk, err := rules.LoadDirRecursive(cfg.RulesDir); err != nil {
			log.Warn().Err(err).Str("dir", cfg.RulesDir).Msg("failed to load rules from disk")
		} else {
			docs = append(docs, fromDisk...)
			log.Info().Int("count", len(fromDisk)).Str("dir", cfg.RulesDir).Msg("loaded rules from disk")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stored, err := db.LoadEnabledRules(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load rules from store")
	}
	for _, rec := range stored {
		doc, err := sigma.LoadYAML([]byte(rec.YAML))
		if err != nil {
			log.Warn().Err(err).Str("rule_id", rec.ID).Msg("skipping malformed stored rule")
			continue
		}
		docs = append(docs, doc)
	}

	tracer := tracing.NewZerologTracer(log)
	rs, err := ruleset.Compile(docs, tracer)
	if err != nil {
		return fmt.Errorf("compile ruleset: %w", err)
	}
	log.Info().Int("rules", len(docs)).Msg("ruleset compiled")

	srv := httpapi.New(rs, db, log)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
	return http.ListenAndServe(cfg.HTTPAddr, mux)
}
