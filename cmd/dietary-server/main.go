package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nutritrack/dietary/internal/config"
	"github.com/nutritrack/dietary/internal/domain/ordering"
	"github.com/nutritrack/dietary/internal/platform/auth"
	"github.com/nutritrack/dietary/internal/platform/db"
	"github.com/nutritrack/dietary/internal/platform/events"
	"github.com/nutritrack/dietary/internal/platform/websocket"
	"github.com/nutritrack/dietary/internal/seed"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dietary-server",
		Short: "Hospital dietary management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, "dietary-server", cfg.DBMaxConns, cfg.DBMinConns)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetInt("to")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, db.Migrations()).UpTo(ctx, target)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies all)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(os.Stdout, statuses)
			return nil
		},
	}
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data, staff accounts and demo patients from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)
			file, err := seed.LoadFile(path)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			mailer, err := newMailer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			svc, err := buildServices(cfg, pool, events.Noop{}, mailer)
			if err != nil {
				return err
			}

			res, err := seed.NewSeeder(svc.catalog, svc.facility, svc.menus, svc.users, svc.patients, logger).Run(ctx, file)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d diet(s), %d area(s), %d unit(s), %d room(s), %d item(s), %d menu(s), %d user(s), %d patient(s).\n",
				res.Diets, res.ProductionAreas, res.Units, res.Rooms, res.MenuItems, res.Menus, res.Users, res.Patients)
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to the seed YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired orders once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			publisher, closeBroker, err := brokerPublisher(cfg, logger)
			if err != nil {
				return err
			}
			defer closeBroker()

			n, err := ordering.NewSweeper(ordering.NewRepo(pool), publisher, cfg.OrderSweepInterval, logger).Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired order(s).\n", n)
			return nil
		},
	}
}

// brokerPublisher dials AMQP_URL when set and keeps redialing if the broker
// drops. Without a broker events only reach the in-process sinks.
func brokerPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		return events.Noop{}, func() {}, nil
	}
	conn, err := events.DialReconnecting(cfg.AMQPURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}
	pub := events.NewAMQPPublisher(conn, cfg.AMQPExchange)
	logger.Info().Str("exchange", cfg.AMQPExchange).Msg("publishing events to broker")
	return pub, func() { _ = pub.Close() }, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	broker, closeBroker, err := brokerPublisher(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to broker")
	}
	defer closeBroker()

	hub := websocket.NewHub(logger)
	bus := events.NewBus(logger, hub, broker)

	mailer, err := newMailer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up mailer")
	}
	svc, err := buildServices(cfg, pool, bus, mailer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}

	revoked := auth.NewTokenRevocationStore(time.Minute)
	defer revoked.Close()

	e := newServer(serverDeps{cfg: cfg, pool: pool, svc: svc, hub: hub, revoked: revoked, logger: logger})

	sweeper := ordering.NewSweeper(svc.orderRepo, bus, cfg.OrderSweepInterval, logger)
	go sweeper.Run(ctx)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
