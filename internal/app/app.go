package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarker/internal/config"
	"github.com/MrSnakeDoc/bookmarker/internal/database"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/metadata"
	"github.com/MrSnakeDoc/bookmarker/internal/offline"
	"github.com/MrSnakeDoc/bookmarker/internal/redis"
	"github.com/MrSnakeDoc/bookmarker/internal/repository"
	"github.com/MrSnakeDoc/bookmarker/internal/rpc"
	"github.com/MrSnakeDoc/bookmarker/internal/scheduler"
	"github.com/MrSnakeDoc/bookmarker/internal/settings"
	"github.com/MrSnakeDoc/bookmarker/internal/share"
	"github.com/MrSnakeDoc/bookmarker/internal/sources/homepage"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
	redisstore "github.com/MrSnakeDoc/bookmarker/internal/store/redis"
	"github.com/MrSnakeDoc/bookmarker/internal/transfer"
	"github.com/MrSnakeDoc/bookmarker/internal/version"
)

type App struct {
	cfg            *config.Config
	logger         logger.Logger
	server         *httpserver.Server
	redisClient    *goredis.Client
	db             *database.Service
	stopWorker     context.CancelFunc
	events         *offline.Events
	registration   *offline.Registration
	controller     *offline.Controller
	reloader       *scheduler.HomepageReloader
	backgroundSync *scheduler.BackgroundSync
	snapshotter    *scheduler.Snapshotter
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis is optional. Without it the offline caches live in process, the
	// settings on disk, and the database must open on the filesystem.
	var (
		redisClient *goredis.Client
		store       *redisstore.Store
	)
	if cfg.RedisEnabled() {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")
		redisClient = client
		store = redisstore.NewStore(client)
	} else {
		loggerClient.Info("Redis not configured, the database requires the filesystem backend")
	}

	backends := storageBackends(cfg, store)

	storageLog := loggerClient.Named("storage")
	workerCtx, stopWorker := context.WithCancel(context.Background())
	bridge := rpc.Start(workerCtx, rpc.NewWorker(storageLog, backends...), rpc.Options{
		Timeout:     cfg.RPCTimeout,
		InitRetries: uint64(max(cfg.InitRetries, 0)),
		Logger:      storageLog,
	})
	db := database.New(bridge, cfg.DBName, storageLog)

	initCtx, cancel := context.WithTimeout(context.Background(), cfg.InitTimeout)
	err := db.Init(initCtx)
	cancel()
	if err != nil {
		loggerClient.Errorf("Failed to initialize storage: %v", err)
		stopWorker()
		os.Exit(1)
	}

	// Settings
	var settingsStore settings.Store = settings.NewFileStore(cfg.SettingsDir)
	if store != nil {
		settingsStore = store.Settings()
	}
	prefs := settings.NewManager(settingsStore, loggerClient)
	if err := prefs.Load(context.Background()); err != nil {
		loggerClient.Warn("failed to load settings, using defaults", logger.Error(err))
	}

	// Offline cache in front of the application shell origin
	offlineLog := loggerClient.Named("offline")
	events := offline.NewEvents(offlineLog)
	status := offline.NewNetworkStatus(events)
	syncs := offline.NewSyncManager(events, offlineLog)
	syncs.Handle(offline.TagSyncBookmarks, db.Flush)
	registration := offline.NewRegistration(http.DefaultTransport, events, syncs, offlineLog)

	manifest, err := offline.LoadManifest(cfg.ManifestFile)
	if err != nil {
		loggerClient.Errorf("Failed to load cache manifest: %v", err)
		os.Exit(1)
	}
	if cfg.CacheVersion != "" {
		manifest.Version = cfg.CacheVersion
	}
	var caches offline.CacheStorage = offline.NewMemoryStorage()
	cacheStore := "memory"
	if store != nil {
		caches = store.Caches()
		cacheStore = "redis"
	}
	controller := offline.NewController(offline.Options{
		Manifest:     manifest,
		Origin:       cfg.OriginURL,
		Caches:       caches,
		FetchTimeout: cfg.FetchTimeout,
		Status:       status,
		Logger:       offlineLog,
	})

	prefs.OnChange(func(s settings.Settings) {
		events.Publish(offline.Message{Type: offline.MsgSettingsChanged, Data: s})
	})

	// Repositories and services
	titles := metadata.NewTitleFetcher(
		&http.Client{Transport: registration, Timeout: cfg.FetchTimeout},
		prefs.AutoFetchMetadata,
		loggerClient,
	)
	repo := repository.New(db, loggerClient)
	repo.Bookmarks.WithTitleFetcher(titles)
	transferSvc := transfer.NewService(db, repo, loggerClient)
	shareSvc := share.NewService(repo.Bookmarks, loggerClient)

	// Homepage import (if a bookmarks.yaml or services.yaml is configured)
	schedLog := loggerClient.Named("scheduler")
	var reloader *scheduler.HomepageReloader
	var reloadTrigger chan struct{}
	source := homepage.NewSource(cfg.BookmarkFile, cfg.ServiceFile)
	if source.Enabled() {
		loggerClient.Info("homepage files configured, initializing homepage import",
			logger.String("bookmarks", cfg.BookmarkFile),
			logger.String("services", cfg.ServiceFile))
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewHomepageReloader(source, transferSvc, schedLog, cfg.ReloadInterval, reloadTrigger)
	} else {
		loggerClient.Info("homepage files not configured, homepage import disabled")
	}

	syncTrigger := make(chan struct{}, 1)
	backgroundSync := scheduler.NewBackgroundSync(syncs, schedLog, cfg.SyncInterval, syncTrigger)

	var snapshotter *scheduler.Snapshotter
	if db.Backend() != storage.TagFilesystem {
		snapshotter = scheduler.NewSnapshotter(db, schedLog, cfg.SnapshotInterval)
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		CORSOrigins:     cfg.CORSOrigins,
		RequestTimeout:  cfg.RequestTimeout,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DB:              db,
		Repo:            repo,
		Transfer:        transferSvc,
		Share:           shareSvc,
		Settings:        prefs,
		Events:          events,
		Registration:    registration,
		Origin:          cfg.OriginURL,
		RedisClient:     redisClient,
		CacheStore:      cacheStore,
		ReloadTrigger:   reloadTrigger,
		SyncTrigger:     syncTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:            cfg,
		logger:         loggerClient,
		server:         server,
		redisClient:    redisClient,
		db:             db,
		stopWorker:     stopWorker,
		events:         events,
		registration:   registration,
		controller:     controller,
		reloader:       reloader,
		backgroundSync: backgroundSync,
		snapshotter:    snapshotter,
	}
}

// storageBackends lists the backends in selection order: filesystem first,
// key-value emulation as fallback. The key-value backend has no store without
// Redis, so a disabled or unwritable data dir fails initialization.
func storageBackends(cfg *config.Config, store *redisstore.Store) []storage.Backend {
	var images storage.ImageStore
	if store != nil {
		images = store
	}
	return []storage.Backend{
		&storage.FilesystemBackend{Dir: cfg.DataDir, Disabled: cfg.DisableFilesystem},
		&storage.KeyValueBackend{Store: images, ScratchDir: cfg.ScratchDir},
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Bookmarker v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Bookmarker %s, storage=%s", version.String(), a.db.Backend())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Install the offline cache. An unreachable origin is not fatal: requests
	// go straight to the network until the next start.
	if err := a.registration.Update(ctx, a.controller); err != nil {
		a.logger.Warn("offline cache install failed, serving from the network",
			logger.String("version", a.controller.Version()),
			logger.Error(err))
	} else {
		a.logger.Info("offline cache active",
			logger.String("version", a.controller.Version()))
	}

	// Start homepage import (if enabled)
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start homepage reloader: %w", err)
		}
		a.logger.Info("homepage reloader started",
			logger.Duration("interval", a.cfg.ReloadInterval))
	}

	a.backgroundSync.Start(ctx)
	a.logger.Info("background sync started",
		logger.Duration("interval", a.cfg.SyncInterval))

	if a.snapshotter != nil {
		a.snapshotter.Start(ctx)
		a.logger.Info("snapshotter started",
			logger.Duration("interval", a.cfg.SnapshotInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.reloader != nil {
		a.reloader.Stop()
	}
	a.backgroundSync.Stop()
	if a.snapshotter != nil {
		a.snapshotter.Stop()
	}

	// Close event streams first, Shutdown waits for open connections.
	a.events.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Closing flushes non-durable backends.
	if err := a.db.Close(shutdownCtx); err != nil {
		a.logger.Warnf("failed to close storage: %v", err)
	} else {
		a.logger.Info("✅ Storage closed cleanly")
	}
	a.stopWorker()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Bookmarker stopped cleanly")
	return nil
}
