// Package application provides the dependency injection container that wires
// configuration, caches, the budget governor and the provider adapters into
// the request gateway.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jbctechsolutions/spendgate/internal/adapters/cache"
	"github.com/jbctechsolutions/spendgate/internal/adapters/provider/openai"
	"github.com/jbctechsolutions/spendgate/internal/application/gateway"
	"github.com/jbctechsolutions/spendgate/internal/application/ports"
	"github.com/jbctechsolutions/spendgate/internal/domain/budget"
	"github.com/jbctechsolutions/spendgate/internal/domain/conversation"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/config"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/logging"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/storage"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/tokenizer"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/tracing"
)

// Container holds every initialized component of the application.
type Container struct {
	config  *config.Config
	verbose bool

	logger *logging.Logger
	tracer *tracing.Tracer

	dbConn      *storage.Connection
	redisClient *redis.Client

	responseCache ports.ResponseCachePort
	memoryCache   *cache.MemoryResponseCache
	imageCache    ports.ImageCachePort

	estimator ports.TokenEstimator
	governor  *budget.Governor
	window    *conversation.Window
	provider  *openai.Provider
	gateway   *gateway.Service

	configWatcher *config.Watcher
}

// NewContainer creates a dependency injection container with all services
// initialized from the provided configuration.
func NewContainer(cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
	}

	c.initObservability()

	if err := c.initCaches(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize caches: %w", err)
	}

	if err := c.initProvider(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}

	c.initTokenizer()
	c.initDomain()
	c.initGateway()

	return c, nil
}

// initObservability sets up the global logger and tracer from configuration.
func (c *Container) initObservability() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.Level(c.config.Logging.Level)
	logCfg.Format = logging.Format(c.config.Logging.Format)
	if c.verbose {
		logCfg.Level = logging.LevelDebug
	}
	c.logger = logging.Init(logCfg)

	traceCfg := tracing.DefaultConfig()
	traceCfg.Enabled = c.config.Observability.Tracing.Enabled
	traceCfg.ExporterType = tracing.ExporterType(c.config.Observability.Tracing.ExporterType)
	traceCfg.OTLPEndpoint = c.config.Observability.Tracing.OTLPEndpoint
	traceCfg.SampleRate = c.config.Observability.Tracing.SampleRate
	if c.config.Observability.Tracing.ServiceName != "" {
		traceCfg.ServiceName = c.config.Observability.Tracing.ServiceName
	}

	tracer, err := tracing.Init(context.Background(), traceCfg)
	if err != nil {
		c.logger.Warn("tracing disabled", "error", err)
		tracer, _ = tracing.New(context.Background(), tracing.Config{Enabled: false})
	}
	c.tracer = tracer
}

// initCaches creates the response cache for the configured backend and the
// image verdict cache. A disabled cache falls back to the in-memory backend
// so the request path never needs a nil check.
func (c *Container) initCaches() error {
	cacheCfg := c.config.Cache

	backend := cacheCfg.Backend
	if !cacheCfg.Enabled {
		c.logger.Warn("response cache disabled, using in-memory backend")
		backend = "memory"
	}

	switch backend {
	case "", "memory":
		c.memoryCache = cache.NewMemoryResponseCache(cacheCfg.ResponseTTL, cacheCfg.CleanupPeriod)
		c.responseCache = c.memoryCache

	case "sqlite":
		conn, err := storage.NewConnection(cacheCfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		if err := conn.Open(); err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		c.dbConn = conn
		c.responseCache = cache.NewSQLiteResponseCache(conn, cacheCfg.ResponseTTL)

	case "redis":
		c.redisClient = redis.NewClient(&redis.Options{
			Addr:     cacheCfg.Redis.Addr,
			Password: cacheCfg.Redis.Password,
			DB:       cacheCfg.Redis.DB,
			PoolSize: cacheCfg.Redis.PoolSize,
		})
		c.responseCache = cache.NewRedisResponseCache(c.redisClient, cacheCfg.ResponseTTL)

	default:
		return fmt.Errorf("unknown cache backend: %s", backend)
	}

	c.imageCache = cache.NewImageDedupCache(cacheCfg.ImageCacheCapacity)
	return nil
}

// initProvider creates the OpenAI adapter from configuration.
func (c *Container) initProvider() error {
	providerCfg := c.config.Providers.OpenAI
	if !providerCfg.Enabled {
		return fmt.Errorf("no provider enabled: set providers.openai.enabled in the config")
	}
	if providerCfg.APIKey == "" {
		return fmt.Errorf("providers.openai.api_key is required")
	}

	clientCfg := openai.DefaultConfig(providerCfg.APIKey)
	if providerCfg.BaseURL != "" {
		clientCfg.BaseURL = providerCfg.BaseURL
	}
	if providerCfg.Timeout > 0 {
		clientCfg.Timeout = providerCfg.Timeout
	}
	if providerCfg.MaxRetries > 0 {
		clientCfg.MaxRetries = providerCfg.MaxRetries
	}

	c.provider = openai.NewProvider(clientCfg,
		openai.WithTextModel(providerCfg.TextModel),
		openai.WithTranscriptionModel(providerCfg.TranscriptionModel),
		openai.WithModerationModel(providerCfg.ModerationModel),
	)
	return nil
}

// initTokenizer creates the token estimator, falling back to the heuristic
// estimator when the encoding cannot be loaded.
func (c *Container) initTokenizer() {
	est, err := tokenizer.NewEstimator()
	if err != nil {
		c.logger.Warn("tiktoken encoding unavailable, using heuristic estimator", "error", err)
		c.estimator = tokenizer.NewSimpleEstimator()
		return
	}
	c.estimator = est
}

// rolloverSweepInterval is how often the governor discards ledger entries
// for past days.
const rolloverSweepInterval = 24 * time.Hour

// initDomain creates the budget governor and the conversation window.
func (c *Container) initDomain() {
	c.governor = budget.NewGovernor(c.config.Budget.DailyCapUSD,
		budget.WithSweepInterval(rolloverSweepInterval))
	c.window = conversation.NewWindow(c.config.Context.MaxTurns)
}

// initGateway assembles the request gateway from the initialized parts.
func (c *Container) initGateway() {
	c.gateway = gateway.NewService(gateway.Deps{
		Text:       c.provider,
		Transcribe: c.provider,
		Moderate:   c.provider,
		Responses:  c.responseCache,
		Images:     c.imageCache,
		Estimator:  c.estimator,
		Governor:   c.governor,
		Prices:     priceTable(c.config.Budget.Prices),
		Window:     c.window,
	},
		gateway.WithLogger(c.logger),
		gateway.WithTracer(c.tracer),
		gateway.WithMaxVoiceSeconds(c.config.Limits.MaxVoiceSeconds),
		gateway.WithVisionHighMaxBytes(c.config.Limits.VisionHighMaxBytes),
	)
}

// priceTable converts the configured per-million-token rates into the
// per-token rates the domain uses.
func priceTable(p config.PriceConfig) budget.PriceTable {
	return budget.PriceTable{
		TextInputPerToken:      p.TextInputPerMTok / 1_000_000,
		TextOutputPerToken:     p.TextOutputPerMTok / 1_000_000,
		TranscriptionPerMinute: p.TranscriptionPerMin,
		VisionHighPerImage:     p.VisionHighPerImage,
		VisionLowPerImage:      p.VisionLowPerImage,
	}
}

// StartConfigWatching watches the config directory and applies reloadable
// settings, currently the log level and format, when the file changes.
func (c *Container) StartConfigWatching(ctx context.Context, configDir string) error {
	if c.configWatcher != nil {
		return nil
	}

	watcher, err := config.NewWatcher(config.DefaultWatcherConfig())
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	if err := watcher.Watch(ctx, configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	c.configWatcher = watcher

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events():
				if !ok {
					return
				}
				c.reloadConfig(event.Path)
			case err, ok := <-watcher.Errors():
				if !ok {
					return
				}
				c.logger.Warn("config watcher error", "error", err)
			}
		}
	}()

	return nil
}

// reloadConfig applies the reloadable subset of a changed config file.
func (c *Container) reloadConfig(path string) {
	loader, err := config.NewLoader("")
	if err != nil {
		return
	}
	cfg, err := loader.LoadFromFile(path)
	if err != nil {
		c.logger.Warn("ignoring config change", "path", path, "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		c.logger.Warn("ignoring invalid config change", "path", path, "error", err)
		return
	}

	c.logger.SetLevel(logging.Level(cfg.Logging.Level))
	c.logger.Info("configuration reloaded", "path", path)
}

// Gateway returns the request gateway service.
func (c *Container) Gateway() *gateway.Service {
	return c.gateway
}

// Config returns the active configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the application tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}

// ResponseCache returns the configured response cache.
func (c *Container) ResponseCache() ports.ResponseCachePort {
	return c.responseCache
}

// ImageCache returns the image verdict cache.
func (c *Container) ImageCache() ports.ImageCachePort {
	return c.imageCache
}

// Governor returns the budget governor.
func (c *Container) Governor() *budget.Governor {
	return c.governor
}

// Close releases every resource the container owns.
func (c *Container) Close() error {
	var firstErr error

	if c.configWatcher != nil {
		if err := c.configWatcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.memoryCache != nil {
		if err := c.memoryCache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.governor != nil {
		if err := c.governor.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.dbConn != nil {
		if err := c.dbConn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.tracer != nil {
		if err := c.tracer.Shutdown(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
