// cmd/offer-server/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"seo-offers/internal/api"
	"seo-offers/internal/common/auth"
	awsclient "seo-offers/internal/common/aws"
	"seo-offers/internal/common/camunda"
	"seo-offers/internal/common/config"
	"seo-offers/internal/common/database"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/common/metrics"
	"seo-offers/internal/common/observability"
	"seo-offers/internal/common/zoho"
	"seo-offers/internal/document"
	"seo-offers/internal/inference"
	"seo-offers/internal/notify"
	"seo-offers/internal/search"
	"seo-offers/internal/store"
	"seo-offers/internal/submission"
	"seo-offers/internal/wizard"
	"seo-offers/internal/workers/offerjob"

	cl "seo-offers/internal/workers/offer/crm-lead-create"
	ix "seo-offers/internal/workers/offer/index-offer"
	ns "seo-offers/internal/workers/offer/notify-staff"
	so "seo-offers/internal/workers/offer/send-offer-email"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// offerWorker is one service task of the offer-submitted process. Each can
// run as a Zeebe job worker or as an in-process action.
type offerWorker interface {
	Register(client zbc.Client) *camunda.CamundaWorker
	Action() notify.Action
	Observe(rec offerjob.Recorder)
	IsEnabled() bool
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	if err := run(cfg, zapLog); err != nil {
		zapLog.Fatal("offer server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLog *zap.Logger) error {
	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting offer server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.Observability)
	if err != nil {
		zapLog.Warn("observability degraded", zap.Error(err))
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			zapLog.Warn("observability shutdown failed", zap.Error(err))
		}
	}()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		return err
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		if err := pg.Migrate(store.Migrations, store.MigrationsDir); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		zapLog.Info("Database migrations applied")
	}

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		return err
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	ready := map[string]func(context.Context) error{
		"postgres": pg.Ping,
		"redis":    redis.Ping,
	}

	// --- Elasticsearch ---
	var offerIndex *search.OfferIndex
	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return err
		}
		offerIndex = search.NewOfferIndex(es.Client, cfg.Database.Elasticsearch.OffersIndex, log)
		if err := offerIndex.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("ensure offers index: %w", err)
		}
		ready["elasticsearch"] = es.Ping
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- External service clients ---
	keycloak := auth.NewKeycloakClient(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
	)
	unsubscribe := keycloak.Subscribe(func(ev auth.Event) {
		metrics.AuthEvents.WithLabelValues(strings.ToLower(string(ev.Type))).Inc()
	})
	defer unsubscribe()

	var sesAPI awsclient.SESAPI
	if cfg.Integrations.AWS.SES.Enabled {
		client, err := awsclient.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return fmt.Errorf("ses client: %w", err)
		}
		sesAPI = client
	}
	mailer := notify.NewMailer(sesAPI, cfg.Integrations.AWS.SES.FromEmail, cfg.Integrations.AWS.SES.FromName, log)

	var snsAPI awsclient.SNSAPI
	if cfg.Integrations.AWS.SNS.Enabled {
		client, err := awsclient.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return fmt.Errorf("sns client: %w", err)
		}
		snsAPI = client
	}
	alerter := notify.NewStaffAlerter(snsAPI, cfg.Integrations.AWS.SNS.StaffTopicARN, log)

	var crm cl.CRM
	if cfg.Integrations.Zoho.Enabled {
		crm = zoho.NewCRMClient(cfg.Integrations.Zoho.APIKey, cfg.Integrations.Zoho.AuthToken, cfg.Integrations.Zoho.BaseURL)
	}

	zapLog.Info("All external service clients initialized")

	offers := store.New(pg.GetDB())

	// --- Offer workers ---
	workers, err := buildWorkers(cfg, mailer, alerter, crm, offerIndex, offers, log)
	if err != nil {
		return err
	}
	for _, w := range workers {
		w.Observe(obs)
	}

	var notifier submission.Notifier
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			return err
		}
		defer zeebe.Close()
		zapLog.Info("Zeebe client connected successfully")
		ready["zeebe"] = zeebe.HealthCheck

		if cfg.Camunda.ResourcePath != "" {
			if err := zeebe.DeployResource(ctx, cfg.Camunda.ResourcePath); err != nil {
				return fmt.Errorf("deploy %s: %w", cfg.Camunda.ResourcePath, err)
			}
			zapLog.Info("Process deployed", zap.String("resource", cfg.Camunda.ResourcePath))
		}

		for _, w := range workers {
			jw := w.Register(zeebe.GetClient())
			defer jw.Stop()
		}
		zapLog.Info("Offer workers registered", zap.Int("count", len(workers)))

		notifier = camunda.NewOfferProcessDispatcher(zeebe, cfg.Camunda.ProcessID, log)
	} else {
		actions := directActions(workers)
		direct := notify.NewDirectDispatcher(actions, 100, 2, config.GetDuration(cfg.Camunda.Timeout), log)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
			defer cancel()
			if err := direct.Stop(stopCtx); err != nil {
				zapLog.Warn("direct dispatcher stop", zap.Error(err))
			}
		}()
		notifier = direct
		zapLog.Info("Camunda disabled, running follow-up actions in-process", zap.Int("actions", len(actions)))
	}

	// --- Submission, wizard and documents ---
	gateway := submission.NewGateway(keycloak, offers, notifier, log, submission.WithTracer(obs.Tracer()))

	engine := inference.NewEngine(
		inference.WithCityCount(cfg.Wizard.CityCount),
		inference.WithRandomIndustry(cfg.Wizard.RandomIndustry),
	)
	machine := wizard.NewMachine(engine, wizard.WithRedirect(cfg.Wizard.RedirectTo, config.GetDuration(cfg.Wizard.RedirectAfter)))
	sessions := wizard.NewSessionStore(
		redis.GetClient(),
		time.Duration(cfg.Wizard.SessionTTL)*time.Second,
		time.Duration(cfg.Wizard.SubmitLockTTL)*time.Second,
	)
	wizardService := wizard.NewService(machine, sessions, gateway, log)

	renderer, err := document.NewRenderer()
	if err != nil {
		return fmt.Errorf("document templates: %w", err)
	}
	exporter := document.NewChromeExporter(cfg.Document.ChromePath, config.GetDuration(cfg.Document.ExportTimeout), log)
	documents := document.NewService(renderer, exporter, obs.Tracer())

	// --- HTTP API ---
	deps := api.Deps{
		Auth:        keycloak,
		Accounts:    keycloak,
		Wizard:      wizardService,
		Submissions: gateway,
		Store:       offers,
		Mailer:      mailer,
		Documents:   documents,
		Ready:       ready,
		StaffRoles:  cfg.Auth.StaffRoles,
	}
	if offerIndex != nil {
		deps.Search = offerIndex
	}

	server := api.NewServer(deps, api.Options{}, log)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	zapLog.Info("Offer server stopped")
	return nil
}

func buildWorkers(
	cfg *config.Config,
	mailer *notify.Mailer,
	alerter *notify.StaffAlerter,
	crm cl.CRM,
	offerIndex *search.OfferIndex,
	offers *store.Store,
	log logger.Logger,
) ([]offerWorker, error) {
	email, err := so.NewHandler(so.HandlerOptions{AppConfig: cfg, Mailer: mailer, Offers: offers, Logger: log})
	if err != nil {
		return nil, err
	}
	staff, err := ns.NewHandler(ns.HandlerOptions{AppConfig: cfg, Alerter: alerter, Logger: log})
	if err != nil {
		return nil, err
	}
	lead, err := cl.NewHandler(cl.HandlerOptions{
		AppConfig:  cfg,
		CRM:        crm,
		LeadSource: cfg.Integrations.Zoho.LeadSource,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	// The index task is part of every process instance, so its worker is
	// built even without a cluster and then completes jobs as skipped.
	var indexer ix.Indexer
	if offerIndex != nil {
		indexer = offerIndex
	}
	index, err := ix.NewHandler(ix.HandlerOptions{AppConfig: cfg, Indexer: indexer, Logger: log})
	if err != nil {
		return nil, err
	}
	return []offerWorker{email, staff, lead, index}, nil
}

// directActions returns the in-process actions of the enabled workers.
func directActions(workers []offerWorker) []notify.Action {
	actions := make([]notify.Action, 0, len(workers))
	for _, w := range workers {
		if w.IsEnabled() {
			actions = append(actions, w.Action())
		}
	}
	return actions
}
