package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/tokokita/api/internal/di"
	"github.com/tokokita/api/internal/handlers"
	"github.com/tokokita/api/internal/payments"
	"github.com/tokokita/api/internal/platform/auth"
	"github.com/tokokita/api/internal/platform/config"
	pfirestore "github.com/tokokita/api/internal/platform/firestore"
	"github.com/tokokita/api/internal/platform/jobs"
	"github.com/tokokita/api/internal/platform/observability"
	"github.com/tokokita/api/internal/platform/secrets"
	firestoreRepo "github.com/tokokita/api/internal/repositories/firestore"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithDefaultProject(envValues["API_FIREBASE_PROJECT_ID"]),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(pfirestore.Settings{
		ProjectID:    cfg.Firestore.ProjectID,
		EmulatorHost: cfg.Firestore.EmulatorHost,
	})
	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}()

	orderTopic := pubsubClient.Topic(cfg.PubSub.OrderTopic)
	defer orderTopic.Stop()
	var reviewTopic *pubsub.Topic
	if cfg.PubSub.ReviewTopic != "" {
		reviewTopic = pubsubClient.Topic(cfg.PubSub.ReviewTopic)
		defer reviewTopic.Stop()
	}

	publisher, err := jobs.NewPubSubEventPublisher(orderTopic, reviewTopic)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}

	gateway, err := payments.NewMidtransProvider(payments.MidtransProviderConfig{
		ServerKey:  cfg.Midtrans.ServerKey,
		Production: cfg.Midtrans.Production,
		Timeout:    cfg.Midtrans.SessionTimeout,
		Logger:     observability.EventLogger(logger.Named("payments")),
	})
	if err != nil {
		logger.Fatal("failed to initialise midtrans provider", zap.Error(err))
	}

	container, err := di.NewContainer(cfg, registry, di.Dependencies{
		Gateway:      gateway,
		OrderEvents:  publisher,
		ReviewEvents: publisher,
		Logger:       observability.EventLogger(logger.Named("services")),
	})
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier, auth.WithUserGetter(firebaseVerifier))

	meHandlers := handlers.NewMeHandlers(authenticator, container.Services.Users)
	webhookHandlers := handlers.NewWebhookHandlers(container.Services.Orders)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthStartedAt(startedAt),
		handlers.WithReadinessCheck("firestore", firestoreReadinessCheck(firestoreProvider)),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.RecoveryMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMeRoutes(meHandlers.Routes),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("tokokita api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// requiredSecretNames reports which configuration fields must resolve through
// Secret Manager based on the raw environment values.
func requiredSecretNames(env map[string]string) []string {
	var names []string
	serverKey := strings.TrimSpace(env["API_MIDTRANS_SERVER_KEY"])
	if strings.HasPrefix(serverKey, "secret://") || strings.HasPrefix(serverKey, "sm://") {
		names = append(names, "Midtrans.ServerKey")
	}
	return names
}

func firestoreReadinessCheck(provider *pfirestore.Provider) handlers.ReadinessCheck {
	return func(ctx context.Context) error {
		client, err := provider.Client(ctx)
		if err != nil {
			return err
		}
		iter := client.Collections(ctx)
		if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}
