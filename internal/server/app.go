// Package server wires the account services together and runs the gRPC
// endpoint next to the metrics/health endpoint until a signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/keyexchange"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/noncecache"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

// Seams for tests.
var (
	openDB         = repomanager.OpenDB
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newS3Client    = func(ctx context.Context, st keyexchange.S3Settings) (keyexchange.S3GetObjectAPI, error) {
		return keyexchange.NewS3Client(ctx, st)
	}
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	outbox     *os.File
	grpcServer *gs.GRPCServer
	metrics    *metrics.Server
}

// NewApp connects to storage, migrates the schema and builds every service.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	app := &App{config: c, logger: logger}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	src, err := app.keySource(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	keys, err := keyexchange.NewFromSource(ctx, src)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("key exchange init error: %w", err)
	}

	tokens, err := auth.NewTokenIssuer([]byte(c.SecretKey), c.TokenIssuer, c.TokenAudience)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.metrics = metrics.NewServer(c.EndpointAddrMetrics, logger)
	app.metrics.AddCheck("database", db.PingContext)

	deps := services.Deps{
		DB:        db,
		Repos:     rm,
		Keys:      keys,
		Tokens:    tokens,
		Mailer:    app.mailer(),
		Messages:  mail.NewBuilder(c.MailSenderName, c.VerificationLinkBase),
		Validator: validation.New(),
		Logger:    logger,
	}

	if c.RedisAddr != "" {
		app.redis = noncecache.NewClient(c.RedisAddr, c.RedisPassword)
		guard := noncecache.NewGuard(app.redis, c.NonceTTL)
		deps.Guard = guard
		app.metrics.AddCheck("redis", guard.Ping)
	}

	svc, err := app.buildServices(deps)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, svc, tokens, deps.Validator, app.metrics.Metrics())

	return app, nil
}

func (app *App) buildServices(d services.Deps) (gs.Services, error) {
	var (
		svc gs.Services
		err error
	)
	if svc.Auth, err = services.NewAuthService(d, app.config); err != nil {
		return svc, err
	}
	if svc.Registration, err = services.NewRegistrationService(d, app.config); err != nil {
		return svc, err
	}
	if svc.Verification, err = services.NewVerificationService(d, app.config); err != nil {
		return svc, err
	}
	if svc.Recovery, err = services.NewRecoveryService(d, app.config); err != nil {
		return svc, err
	}
	return svc, nil
}

func (app *App) keySource(ctx context.Context) (keyexchange.Source, error) {
	c := app.config
	switch c.KeySource {
	case config.KeySourceFile:
		return keyexchange.FileSource{Path: c.KeyPath}, nil
	case config.KeySourceS3:
		client, err := newS3Client(ctx, keyexchange.S3Settings{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		return keyexchange.S3Source{Client: client, Bucket: c.S3Bucket, Key: c.KeyPath}, nil
	default:
		return keyexchange.GenerateSource{Bits: c.KeyBits}, nil
	}
}

// mailer picks the SMTP relay when one is configured. Otherwise messages go
// to the outbox file, or to stderr when no outbox directory is set.
func (app *App) mailer() mail.Sender {
	c := app.config
	if c.SMTPHost == "" {
		if c.MailOutboxDir != "" {
			f, err := filex.OpenAppend(c.MailOutboxDir, outboxFile)
			if err == nil {
				app.outbox = f
				return mail.NewOutboxSender(f, app.logger)
			}
			app.logger.Error(context.Background(), "cannot open mail outbox", "error", err)
		}
		app.logger.Warn(context.Background(), "SMTP host is not configured, mail is written to stderr")
		return mail.NewOutboxSender(stderrOutbox, app.logger)
	}
	return mail.NewSMTPSender(mail.SMTPSettings{
		Host:        c.SMTPHost,
		Port:        c.SMTPPort,
		User:        c.SMTPUser,
		Password:    c.SMTPPassword,
		SenderName:  c.MailSenderName,
		SenderEmail: c.MailSenderEmail,
	}, app.logger)
}

const outboxFile = "outbox.log"

var stderrOutbox io.Writer = os.Stderr

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.metrics.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases storage connections and the outbox file.
func (app *App) Close() {
	if app.outbox != nil {
		_ = app.outbox.Close()
		app.outbox = nil
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(context.Background(), "closing redis", "error", err)
		}
		app.redis = nil
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(context.Background(), "closing db", "error", err)
		}
		app.db = nil
	}
}
