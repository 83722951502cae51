// Package main is the entry point for the dietplan service and CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dietplan/engine/internal/catalog"
	"github.com/dietplan/engine/internal/config"
	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/guard"
	"github.com/dietplan/engine/internal/ipc"
	"github.com/dietplan/engine/internal/observability"
	"github.com/dietplan/engine/internal/planner"
	"github.com/dietplan/engine/internal/restriction"
	"github.com/dietplan/engine/internal/service"
	"github.com/dietplan/engine/internal/store"
	"github.com/dietplan/engine/internal/substitution"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dietplan",
		Short:         "Diet plan generation and food substitution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(), generateCmd(), resolveCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dietplan %s (commit=%s, built=%s)\n", version, commit, date)
		},
	})

	return cmd
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration JSON file")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	metrics := observability.NewMetrics()
	gen := planner.NewGenerator(planner.NewComposer(cat, restriction.NewFilter(cfg.Policy())), nil)
	sub := substitution.NewSubstituter(substitution.NewResolver(cat), nil)
	plans := service.NewPlanService(db, gen, sub, planner.NewRandSource(cfg.Seed), metrics, logger)
	plans.Guard = guard.NewGuard(cfg.RateLimitPerMinute)
	go pruneLoop(ctx, plans.Guard)

	handler := &ipc.Handler{Plans: plans, Metrics: metrics}
	srv := ipc.NewServer(ipc.NewRouter(handler, logger, cfg.AllowedOrigins), cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	logger.Info("dietplan listening",
		zap.String("url", ipc.FormatListenURL(cfg.ListenAddr)),
		zap.String("restriction_fallback", string(cfg.Policy())),
	)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func pruneLoop(ctx context.Context, g *guard.Guard) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Prune()
		}
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

func generateCmd() *cobra.Command {
	var (
		profile      domain.BiometricProfile
		sex          string
		activity     string
		objective    string
		restrictions []string
		seed         uint64
		catalogPath  string
		fallback     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a diet plan and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := restriction.ParsePolicy(fallback)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}

			profile.Sex = domain.Sex(sex)
			profile.ActivityLevel = domain.ActivityLevel(activity)
			profile.Objective = domain.Objective(objective)
			profile.Restrictions = nil
			for _, r := range restrictions {
				profile.Restrictions = append(profile.Restrictions, domain.Restriction(r))
			}

			gen := planner.NewGenerator(planner.NewComposer(cat, restriction.NewFilter(policy)), nil)
			plan, err := gen.Generate(profile, planner.NewRandSource(seed)())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), plan)
		},
	}

	f := cmd.Flags()
	f.StringVar(&sex, "sex", string(domain.SexMale), "male or female")
	f.IntVar(&profile.Age, "age", 0, "age in years")
	f.Float64Var(&profile.WeightKg, "weight", 0, "weight in kg")
	f.Float64Var(&profile.HeightCm, "height", 0, "height in cm")
	f.StringVar(&activity, "activity", string(domain.ActivityModerate), "sedentary, light, moderate, active or very_active")
	f.StringVar(&objective, "objective", string(domain.ObjectiveMaintainWeight), "lose_weight, maintain_weight or gain_mass")
	f.StringSliceVar(&restrictions, "restriction", nil, "dietary restriction (repeatable)")
	f.Uint64Var(&seed, "seed", 0, "random seed (0 = random)")
	f.StringVar(&catalogPath, "catalog", "", "food catalog YAML (default: built-in)")
	f.StringVar(&fallback, "fallback", string(restriction.FallbackUnfiltered), "restriction fallback policy: unfiltered or strict")
	return cmd
}

func resolveCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "resolve <description>",
		Short: "Print substitution candidates for a food description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), substitution.NewResolver(cat).Resolve(args[0]))
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "food catalog YAML (default: built-in)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
