package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quizhub-attempt-service/internal/app"
	"quizhub-attempt-service/internal/config"
	"quizhub-attempt-service/internal/domain"
	"quizhub-attempt-service/internal/infra/memory"
	"quizhub-attempt-service/internal/infra/postgres"
	redisinfra "quizhub-attempt-service/internal/infra/redis"
	"quizhub-attempt-service/internal/logging"
	transport "quizhub-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, defaultPort string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", defaultPort, "port to listen on (overrides server.port)")
	return cmd
}

// backends holds whatever runServer opened so it can be closed on exit.
type backends struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

func (b backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireAuth(); err != nil {
		return err
	}
	log, err := logging.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if portFlag != "" {
		cfg.Server.Port = portFlag
	}

	attempts, quizzes, closer, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	service := app.NewAttemptService(attempts, quizzes,
		app.WithXPPolicy(app.XPPolicy{Pass: cfg.XP.Pass, Fail: cfg.XP.Fail}),
		app.WithElevatedRoles(cfg.Auth.ElevatedRoles...),
		app.WithLogger(log),
	)
	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret)
	router := transport.NewRouter(
		transport.NewAttemptHandler(service, log),
		transport.NewWSHandler(service, auth, log),
		transport.RouterConfig{Auth: auth, AllowedOrigins: cfg.CORS.AllowedOrigins, Log: log},
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting attempt service", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildStores picks backends by configuration: Postgres is the durable
// source when configured, Redis caches quizzes (and holds attempts when
// there is no Postgres), memory covers the rest.
func buildStores(ctx context.Context, cfg config.Config, log *zap.Logger) (app.AttemptStore, app.QuizRepository, backends, error) {
	var b backends

	var loader memory.QuizLoader
	var attempts app.AttemptStore
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, nil, b, err
		}
		poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.URL)
		if err != nil {
			return nil, nil, b, err
		}
		if cfg.Postgres.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Postgres.MaxConns
		}
		b.pool, err = pgxpool.ConnectConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, b, err
		}
		loader = postgres.NewQuizLoader(b.pool)
		attempts = postgres.NewAttemptStore(b.pool)
	} else {
		fixtures, err := loadFixtures(cfg.Quiz.FixturesPath, log)
		if err != nil {
			return nil, nil, b, err
		}
		loader = memory.NewStaticQuizLoader(fixtures)
	}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, nil, backends{}, err
		}
		if attempts == nil {
			attempts = redisinfra.NewAttemptStore(b.redis)
		}
		return attempts, redisinfra.NewQuizRepository(b.redis, loader, cfg.Quiz.TTL), b, nil
	}

	if attempts == nil {
		log.Warn("no durable attempt store configured; attempts are kept in memory")
		attempts = memory.NewAttemptStore()
	}
	return attempts, memory.NewQuizRepository(loader, cfg.Quiz.TTL), b, nil
}

func loadFixtures(path string, log *zap.Logger) (map[string]domain.Quiz, error) {
	if path == "" {
		return map[string]domain.Quiz{}, nil
	}
	quizzes, err := memory.LoadQuizFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("quiz fixtures not found; no quizzes available", zap.String("path", path))
		return map[string]domain.Quiz{}, nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("quiz fixtures loaded", zap.String("path", path), zap.Int("quizzes", len(quizzes)))
	return quizzes, nil
}
