// passguard: password-complexity policy guard for database credential
// changes. `serve` runs the HTTP hook service; `check` evaluates a
// candidate password locally.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/passguard/internal/cache"
	"github.com/dropDatabas3/passguard/internal/config"
	pghttp "github.com/dropDatabas3/passguard/internal/http"
	"github.com/dropDatabas3/passguard/internal/observability/logger"
	"github.com/dropDatabas3/passguard/internal/policy"
	"github.com/dropDatabas3/passguard/internal/store"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "passguard",
		Short:         "Password policy guard for database credential changes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), checkCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP hook service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional; real deployments set env vars directly.
			_ = godotenv.Load()

			var cfg *config.Config
			var err error
			if cfgPath != "" {
				cfg, err = config.Load(cfgPath)
			} else {
				cfg, err = config.FromEnv()
			}
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "passguard",
				Version:     version,
			})
			defer func() { _ = logger.Sync() }()
			log := logger.Named("serve")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			handler := pghttp.NewHandler(cfg.DefaultPolicy(), st, cfg.ReportAll())
			router := pghttp.NewRouter(pghttp.RouterConfig{
				Handler:     handler,
				AdminAPIKey: cfg.Server.AdminAPIKey,
			})

			log.Info("starting",
				zap.String("addr", cfg.Server.Addr),
				zap.String("overrides", cfg.Overrides.Driver),
				zap.Int("min_length", cfg.DefaultPolicy().MinLength),
				zap.Bool("log_only", cfg.DefaultPolicy().LogOnly),
			)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return pghttp.Serve(ctx, cfg.Server.Addr, router) })
			if err := g.Wait(); err != nil {
				return err
			}
			log.Info("stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to passguard.yaml (default: env only)")
	return cmd
}

// buildStore wires the override store and its cache from config.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Overrides.Driver {
	case "file":
		st, err = store.NewFile(cfg.Overrides.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Overrides.DSN)
	default:
		return store.None{}, nil
	}
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Kind == "none" {
		return st, nil
	}
	c, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return store.WithCache(st, c, cfg.CacheTTL()), nil
}

func checkCmd() *cobra.Command {
	var (
		username       string
		minLength      int
		requireUpper   bool
		requireLower   bool
		requireDigit   bool
		requireSpecial bool
		rejectUsername bool
		logOnly        bool
	)

	cmd := &cobra.Command{
		Use:   "check [password|-]",
		Short: "Evaluate a password locally against the given tunables",
		Long: "Evaluates a candidate password without a running service.\n" +
			"Pass the password as the only argument, or \"-\" to read it from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd := args[0]
			if pwd == "-" {
				sc := bufio.NewScanner(os.Stdin)
				if !sc.Scan() {
					return fmt.Errorf("no password on stdin")
				}
				pwd = sc.Text()
			}

			cfg := policy.Config{
				MinLength:      minLength,
				RequireUpper:   requireUpper,
				RequireLower:   requireLower,
				RequireDigit:   requireDigit,
				RequireSpecial: requireSpecial,
				RejectUsername: rejectUsername,
				LogOnly:        logOnly,
			}
			verdict := policy.Evaluate(username, &pwd, cfg)
			if verdict.OK() {
				fmt.Println("OK: password accepted")
				return nil
			}
			for _, msg := range verdict.Messages() {
				fmt.Println("violation:", msg)
			}
			if cfg.LogOnly {
				fmt.Println("log-only mode: password would be accepted")
				return nil
			}
			os.Exit(1)
			return nil
		},
	}

	d := policy.Default()
	cmd.Flags().StringVarP(&username, "username", "u", "", "role/username the password belongs to")
	cmd.Flags().IntVar(&minLength, "min-length", d.MinLength, "minimum password length")
	cmd.Flags().BoolVar(&requireUpper, "require-upper", d.RequireUpper, "require an uppercase letter")
	cmd.Flags().BoolVar(&requireLower, "require-lower", d.RequireLower, "require a lowercase letter")
	cmd.Flags().BoolVar(&requireDigit, "require-digit", d.RequireDigit, "require a digit")
	cmd.Flags().BoolVar(&requireSpecial, "require-special", d.RequireSpecial, "require a special character")
	cmd.Flags().BoolVar(&rejectUsername, "reject-username", d.RejectUsername, "reject passwords containing the username")
	cmd.Flags().BoolVar(&logOnly, "log-only", d.LogOnly, "report violations without failing")
	return cmd
}
