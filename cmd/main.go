package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/amirphl/intraday-backtester/internal/api"
	"github.com/amirphl/intraday-backtester/internal/backtest"
	"github.com/amirphl/intraday-backtester/internal/candle"
	"github.com/amirphl/intraday-backtester/internal/config"
	"github.com/amirphl/intraday-backtester/internal/db"
	"github.com/amirphl/intraday-backtester/internal/db/conf"
	"github.com/amirphl/intraday-backtester/internal/marketdata"
	"github.com/amirphl/intraday-backtester/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.MustLoadConfig()
	if err := utils.SetupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatal().Err(err).Msg("Main | failed to set up logger")
	}
	defer utils.CloseLogger()

	logger := utils.Logger("main")
	logger.Info().Str("mode", cfg.Mode).Str("source", cfg.Source).Msg("Main | starting intraday backtester")

	loc, err := candle.LoadExchangeLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("Main | unknown exchange time zone")
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Main | received signal, shutting down")
		cancel()
	}()

	provider, closeFn, err := buildProvider(ctx, cfg, loc)
	if err != nil {
		logger.Fatal().Err(err).Msg("Main | failed to build candle provider")
	}
	defer closeFn()

	runner := backtest.NewRunner(cfg.Strategy)

	switch cfg.Mode {
	case config.ModeBacktest:
		if err := runBacktest(ctx, cfg, loc, runner, provider); err != nil {
			logger.Fatal().Err(err).Msg("Main | backtest failed")
		}
	case config.ModeServe:
		gin.SetMode(gin.ReleaseMode)
		svc := api.NewService(runner, provider, api.ServiceOptions{
			Watchlist:   cfg.Watchlist,
			Location:    loc,
			DefaultDays: cfg.Days,
			Workers:     cfg.Workers,
			RunTimeout:  cfg.RunTimeout,
		})
		if err := api.Serve(ctx, cfg.Listen, api.NewRouter(api.NewHandler(svc)), 10*time.Second); err != nil {
			logger.Fatal().Err(err).Msg("Main | HTTP server failed")
		}
	default:
		logger.Fatal().Msgf("Main | unsupported mode: %s", cfg.Mode)
	}

	logger.Info().Msg("Main | shutdown complete")
}

// buildProvider assembles the candle source chain: wallex, csv or the
// Postgres store backed by wallex, optionally fronted by the redis cache.
func buildProvider(ctx context.Context, cfg config.Config, loc *time.Location) (marketdata.Provider, func(), error) {
	var (
		provider marketdata.Provider
		closers  []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	wallexProvider := func() *marketdata.WallexProvider {
		return marketdata.NewWallexProvider(marketdata.NewWallexClient(cfg.WallexAPIKey), loc, marketdata.DefaultRetryPolicy)
	}

	switch cfg.Source {
	case config.SourceCSV:
		provider = marketdata.NewCSVProvider(cfg.CSVDir, cfg.CSVTimeframe, loc)
	case config.SourceWallex:
		provider = wallexProvider()
	case config.SourceStore:
		if cfg.RunMigration {
			if err := runMigrations(ctx, cfg.DBConnStr); err != nil {
				return nil, closeAll, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		dbConfig, err := conf.NewConfig(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to create DB config: %w", err)
		}
		closers = append(closers, func() { dbConfig.DB.Close() })
		store, err := db.New(*dbConfig)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info().Msg("Main | connected to Postgres/TimescaleDB")

		var upstream marketdata.Provider
		if cfg.WallexAPIKey != "" {
			upstream = wallexProvider()
		}
		provider = marketdata.NewStoreProvider(store, upstream, marketdata.SourceWallex, loc)
	default:
		return nil, closeAll, fmt.Errorf("unsupported source: %s", cfg.Source)
	}

	if cfg.RedisAddr != "" {
		rdb, err := marketdata.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { closeRedis(rdb) })
		provider = marketdata.NewCachingProvider(rdb, cfg.CacheTTL, provider, "candles", loc)
	}
	return provider, closeAll, nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("Main | failed to close redis client")
	}
}

// runBacktest runs the watchlist once, then prints and saves the results.
func runBacktest(ctx context.Context, cfg config.Config, loc *time.Location, runner *backtest.Runner, provider marketdata.Provider) error {
	from, to, err := cfg.Range(loc, time.Now())
	if err != nil {
		return err
	}
	log.Info().Msgf("Main | backtesting %d symbols [%s - %s]",
		len(cfg.Watchlist), from.Format(time.RFC3339), to.Format(time.RFC3339))

	runCtx := ctx
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	results := runner.RunMultiSymbol(runCtx, provider, cfg.Symbols(), backtest.MultiOptions{
		From:    from,
		To:      to,
		Workers: cfg.Workers,
	})

	symbols := make([]string, 0, len(results.Results))
	for s := range results.Results {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		sr := results.Results[s]
		if sr.Result == nil {
			continue
		}
		runner.PrintResult(sr.Result)
		if len(sr.Result.DailyTrades) == 0 {
			continue
		}
		if _, err := backtest.SaveTradesCSV(cfg.OutputDir, sr.Result); err != nil {
			log.Error().Err(err).Str("symbol", s).Msg("Main | failed to save trades")
		}
	}
	runner.PrintMultiSummary(results)

	return backtest.SaveResultsJSON(filepath.Join(cfg.OutputDir, "results.json"), results)
}

// runMigrations creates the database if it doesn't exist and runs the schema.sql script
func runMigrations(ctx context.Context, connStr string) error {
	log.Info().Msg("Main | running database migrations")

	u, err := url.Parse(connStr)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return fmt.Errorf("database name not found in connection string")
	}

	// Connect to the postgres database to create ours
	admin := *u
	admin.Path = "/postgres"
	baseDB, err := sql.Open("postgres", admin.String())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer baseDB.Close()

	var exists bool
	err = baseDB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if !exists {
		log.Info().Str("database", dbName).Msg("Main | creating database")
		if _, err = baseDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	target, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer target.Close()

	schemaSQL, err := os.ReadFile("scripts/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err = target.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema.sql: %w", err)
	}

	log.Info().Msg("Main | database migrations completed")
	return nil
}
