package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jonathan/nexthire/internal/ats"
	"github.com/jonathan/nexthire/internal/config"
	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/events"
	"github.com/jonathan/nexthire/internal/identity"
	"github.com/jonathan/nexthire/internal/mailer"
	"github.com/jonathan/nexthire/internal/notify"
	"github.com/jonathan/nexthire/internal/scheduler"
	"github.com/jonathan/nexthire/internal/server"
	"github.com/jonathan/nexthire/internal/server/ratelimit"
	"github.com/jonathan/nexthire/internal/storage"
	"github.com/jonathan/nexthire/internal/webhook"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start the HTTP server, the resume scoring workers and the maintenance scheduler.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	publisher, closeEvents, err := newPublisher(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeEvents()

	files, filesDir, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	tokens, err := server.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	var verifier *webhook.Verifier
	if cfg.Webhook.Secret != "" {
		if verifier, err = webhook.NewVerifier(cfg.Webhook.Secret); err != nil {
			return fmt.Errorf("invalid webhook secret: %w", err)
		}
	} else {
		log.Println("[serve] WEBHOOK_SECRET not set, webhook deliveries will be rejected")
	}

	notifier := newNotifier(cfg.Telegram)
	scorer := ats.New(database, cfg.ATS.Workers, time.Duration(cfg.ATS.TimeoutSeconds)*time.Second)

	srv, err := server.New(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		FilesDir:    filesDir,
	}, server.Deps{
		Store:     database,
		Identity:  newIdentity(cfg.Identity),
		Tokens:    tokens.AsTokenValidator(),
		Storage:   files,
		Mailer:    newMailer(cfg.SMTP),
		Events:    publisher,
		Notifier:  notifier,
		Scorer:    scorer,
		Webhook:   verifier,
		RateLimit: ratelimit.LoadConfig(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.Maintenance.Schedule != "" {
		sched := scheduler.New(database, cfg.Maintenance.Schedule, func(r scheduler.Report) {
			nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := notifier.Notify(nctx, notify.SweepReport(r.Expired, r.Orphaned)); err != nil {
				log.Printf("[scheduler] notify: %v", err)
			}
		})
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	serveErr := srv.Start(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := scorer.Close(closeCtx); err != nil {
		log.Printf("[serve] resume scoring did not drain: %v", err)
	}
	return serveErr
}

// loadConfig loads and validates the service configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openDatabase connects and applies the schema.
func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}

func newPublisher(ctx context.Context, cfg config.RedisConfig) (events.Publisher, func(), error) {
	if cfg.URL == "" {
		log.Println("[serve] REDIS_URL not set, domain events are dropped")
		return events.Noop{}, func() {}, nil
	}
	client, err := events.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	return events.NewRedis(client, "nexthire."), closeRedis(client), nil
}

func closeRedis(client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			log.Printf("[serve] redis close: %v", err)
		}
	}
}

// newStorage returns the configured file store and, for the local backend,
// the directory the server should expose under /files/.
func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Store, string, error) {
	switch cfg.Backend {
	case config.StorageGCS:
		gcs, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.CredentialsFile)
		if err != nil {
			return nil, "", err
		}
		return gcs, "", nil
	default:
		local, err := storage.NewLocal(cfg.Dir, cfg.PublicURL)
		if err != nil {
			return nil, "", err
		}
		return local, cfg.Dir, nil
	}
}

func newMailer(cfg config.SMTPConfig) mailer.Mailer {
	if !cfg.Enabled() {
		log.Println("[serve] SMTP credentials not set, emails are logged only")
		return mailer.Log{}
	}
	return mailer.NewSMTP(mailer.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		FromName: cfg.FromName,
	})
}

func newNotifier(cfg config.TelegramConfig) notify.Notifier {
	if cfg.BotToken == "" {
		return notify.Log{}
	}
	tg, err := notify.NewTelegram(cfg.BotToken, cfg.ChatID)
	if err != nil {
		log.Printf("[serve] telegram disabled: %v", err)
		return notify.Log{}
	}
	return tg
}

func newIdentity(cfg config.IdentityConfig) identity.Provider {
	if cfg.SecretKey == "" {
		log.Println("[serve] CLERK_SECRET_KEY not set, using in-memory identities")
		return identity.NewMemory()
	}
	return identity.NewClerk(cfg.APIURL, cfg.SecretKey, cfg.RatePerSec, cfg.Burst)
}
