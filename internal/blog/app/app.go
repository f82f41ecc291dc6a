package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quillworks/quill/internal/blog/blob"
	httpapi "github.com/quillworks/quill/internal/blog/http"
	"github.com/quillworks/quill/internal/blog/service"
	"github.com/quillworks/quill/internal/blog/store"
	"github.com/quillworks/quill/internal/blog/store/drivers/sqlite"
	"github.com/quillworks/quill/pkg/cryptox"
	"github.com/quillworks/quill/pkg/jwtx"
	"github.com/quillworks/quill/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the blog service together: store, object storage,
// token codec, services and the HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	blobs blob.Store
	codec *jwtx.Codec

	userService *service.UserService
	postService *service.PostService
	tagService  *service.TagService
	fileService *service.FileService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "blog-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initTokenCodec(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initBlobStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("blog service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the HTTP server and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down blog service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("blog service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initTokenCodec() error {
	key, err := loadOrGenerateSecret(app.cfg.TokenSecretFile)
	if err != nil {
		return fmt.Errorf("failed to load token secret: %w", err)
	}

	codec, err := jwtx.NewCodec(key, app.cfg.Issuer, app.cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec
	return nil
}

func (app *Application) initBlobStore() error {
	if app.cfg.Bucket == "" {
		app.logger.Warn("no bucket configured, attachments are stored in memory")
		app.blobs = blob.NewMemoryStore()
		return nil
	}

	s3store, err := blob.NewS3Store(context.Background(), blob.S3Config{
		Bucket:      app.cfg.Bucket,
		Region:      app.cfg.S3Region,
		Endpoint:    app.cfg.S3Endpoint,
		AccessKey:   app.cfg.S3AccessKey,
		SecretKey:   app.cfg.S3SecretKey,
		Timeout:     app.cfg.S3Timeout,
		MaxAttempts: app.cfg.S3MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}
	app.blobs = s3store

	app.logger.Info("object storage ready", "bucket", app.cfg.Bucket)
	return nil
}

func (app *Application) initServices() {
	app.userService = &service.UserService{
		Store: app.db,
		Codec: app.codec,
	}
	app.postService = &service.PostService{Store: app.db}
	app.tagService = &service.TagService{Store: app.db}
	app.fileService = &service.FileService{
		Store:          app.db,
		Blobs:          app.blobs,
		ScopedKeys:     app.cfg.FileScopedKeys,
		RemoveMetadata: app.cfg.FileDeleteMetadata,
	}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		app.codec,
		app.cfg.TokenReissue,
		app.cfg.TokenTTL,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.UserService = app.userService
	router.PostService = app.postService
	router.TagService = app.tagService
	router.FileService = app.fileService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
