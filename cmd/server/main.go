package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	calendarcatalog "sahayak/internal/calendar/catalog"
	calendarloader "sahayak/internal/calendar/loader"
	calendarservice "sahayak/internal/calendar/service"
	calendarstore "sahayak/internal/calendar/store"
	"sahayak/internal/collaborator"
	coremetrics "sahayak/internal/core/metrics"
	coreservice "sahayak/internal/core/service"
	corestore "sahayak/internal/core/store"
	eligibilitycatalog "sahayak/internal/eligibility/catalog"
	eligibilitymetrics "sahayak/internal/eligibility/metrics"
	eligibilityservice "sahayak/internal/eligibility/service"
	eligibilitystore "sahayak/internal/eligibility/store"
	jwttoken "sahayak/internal/jwt_token"
	"sahayak/internal/platform/config"
	"sahayak/internal/platform/httpserver"
	"sahayak/internal/platform/kafka"
	"sahayak/internal/platform/logger"
	"sahayak/internal/platform/metrics"
	"sahayak/internal/platform/postgres"
	"sahayak/internal/platform/redis"
	"sahayak/internal/platform/tracing"
	ratelimitmetrics "sahayak/internal/ratelimit/metrics"
	ratelimit "sahayak/internal/ratelimit/middleware"
	ratelimitmodels "sahayak/internal/ratelimit/models"
	ratelimitstore "sahayak/internal/ratelimit/store"
	timelinecatalog "sahayak/internal/timeline/catalog"
	timelineloader "sahayak/internal/timeline/loader"
	timelinemodels "sahayak/internal/timeline/models"
	timelineservice "sahayak/internal/timeline/service"
	timelinestore "sahayak/internal/timeline/store"
	trackingmetrics "sahayak/internal/tracking/metrics"
	trackingservice "sahayak/internal/tracking/service"
	trackingstore "sahayak/internal/tracking/store"
	httptransport "sahayak/internal/transport/http"
	"sahayak/internal/workflow/machine"
	workflowmetrics "sahayak/internal/workflow/metrics"
	workflowservice "sahayak/internal/workflow/service"
	workflowstore "sahayak/internal/workflow/store"
	"sahayak/pkg/platform/audit"
	"sahayak/pkg/platform/audit/publisher"
	"sahayak/pkg/platform/audit/publishers/compliance"
	auditmemory "sahayak/pkg/platform/audit/store/memory"
	auditpostgres "sahayak/pkg/platform/audit/store/postgres"
	auditworker "sahayak/pkg/platform/audit/worker"
	"sahayak/pkg/platform/circuit"
)

const (
	serviceName      = "sahayak"
	traceSampleRatio = 0.25
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("sahayak stopped", "error", err)
		os.Exit(1)
	}
}

// stores groups the persistence backends chosen from configuration.
type stores struct {
	calendars    calendarservice.Store
	timelines    timelineservice.Store
	parcels      eligibilityservice.ParcelStore
	applications trackingservice.Store
	sessions     workflowservice.Store
	deletions    coreservice.DeletionStore
	audit        audit.Store
	outbox       *auditpostgres.Store
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracing := tracing.Setup(serviceName, traceSampleRatio)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	loc := cfg.Server.TimeLocation()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if cfg.Postgres.MigrateOnStart {
			if err := postgres.Migrate(db); err != nil {
				return err
			}
		}
	}
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}
	st := openStores(db, rdb, cfg, log)

	compliancePub := compliance.New(st.audit, compliance.WithLogger(log), compliance.WithMetrics(compliance.NewMetrics()))
	defer compliancePub.Close()
	eventPub := publisher.NewPublisher(st.audit, publisher.WithAsyncBuffer(1024), publisher.WithLogger(log))
	defer eventPub.Close()

	// Reference data: persisted catalogs first, then the YAML files on top.
	calendars := calendarcatalog.New()
	calendarSvc := calendarservice.New(calendars, st.calendars,
		calendarservice.WithLogger(log),
		calendarservice.WithAuditor(compliancePub),
	)
	if err := calendarSvc.Warm(ctx); err != nil {
		return err
	}
	schemes := eligibilitycatalog.New()
	timelineRules, err := loadCatalogs(ctx, cfg.Catalog, calendarSvc, schemes, log)
	if err != nil {
		return err
	}

	collaboratorMetrics := collaborator.NewMetrics()
	invoker := func(name string) *collaborator.Invoker {
		return collaborator.NewInvoker(name,
			collaborator.WithTimeout(cfg.Collaborators.Timeout),
			collaborator.WithRetries(cfg.Collaborators.MaxRetries),
			collaborator.WithBackoff(cfg.Collaborators.BaseBackoff),
			collaborator.WithBreaker(circuit.New(name)),
			collaborator.WithMetrics(collaboratorMetrics),
			collaborator.WithLogger(log),
		)
	}
	client := &http.Client{Timeout: cfg.Collaborators.Timeout}
	var retriever collaborator.Retriever = collaborator.NewCatalogRetriever(timelineRules, schemes)
	if cfg.Collaborators.RetrievalURL != "" {
		retriever = collaborator.NewHTTPRetriever(cfg.Collaborators.RetrievalURL, client)
	}
	guardedRetriever := collaborator.GuardRetriever(retriever, invoker("retrieval"))
	deps := collaboratorDeps(cfg.Collaborators, client, invoker)
	deps.Retriever = guardedRetriever

	timelineSvc := timelineservice.New(timelinecatalog.New(), st.timelines,
		timelineservice.WithLogger(log),
		timelineservice.WithSource(guardedRetriever),
		timelineservice.WithAuditor(compliancePub),
	)
	if err := timelineSvc.Warm(ctx); err != nil {
		return err
	}
	if err := publishNewRules(ctx, timelineSvc, timelineRules); err != nil {
		return err
	}

	trackingMetrics := trackingmetrics.New()
	tracker := trackingservice.New(st.applications, timelineSvc, calendarSvc,
		trackingservice.WithLogger(log),
		trackingservice.WithMetrics(trackingMetrics),
		trackingservice.WithAuditor(compliancePub),
		trackingservice.WithLocation(loc),
	)
	parcels := eligibilityservice.New(st.parcels,
		eligibilityservice.WithLogger(log),
		eligibilityservice.WithMetrics(eligibilitymetrics.New()),
		eligibilityservice.WithAuditor(eventPub),
	)
	deps.Tracker, deps.Rules, deps.Eligibility = tracker, timelineSvc, parcels
	sessions := workflowservice.New(st.sessions, deps,
		workflowservice.WithLogger(log),
		workflowservice.WithMetrics(workflowmetrics.New()),
		workflowservice.WithAuditor(eventPub),
		workflowservice.WithMachine(machine.Config{
			SilenceWindow:    cfg.Workflow.SilenceWindow,
			MaxPromptRepeats: cfg.Workflow.MaxPromptRepeats,
			MaxInputRetries:  cfg.Workflow.MaxInputRetries,
			Location:         loc,
		}),
		workflowservice.WithLiveWindow(cfg.Workflow.LiveWindow),
		workflowservice.WithRetention(cfg.Workflow.RetentionWindow),
		workflowservice.WithMaxConflictRetries(cfg.Workflow.MaxConflictRetries),
		workflowservice.WithThresholds(
			cfg.Collaborators.ExtractionConfidenceThreshold,
			cfg.Collaborators.TranscriptConfidenceThreshold,
		),
	)
	core := coreservice.New(sessions, tracker, parcels, st.deletions,
		coreservice.WithLogger(log),
		coreservice.WithMetrics(coremetrics.New()),
		coreservice.WithAuditor(compliancePub),
		coreservice.WithDeletionSLA(cfg.Workflow.DeletionSLA),
	)

	limiter, sweepLimits := newLimiter(cfg.RateLimit, rdb, log)
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	router := httptransport.NewRouter(
		httptransport.NewHandler(core, log),
		httptransport.NewAdminHandler(calendarSvc, timelineSvc, schemes, log),
		httptransport.RouterConfig{
			Tokens:     tokens,
			AdminToken: cfg.Auth.AdminToken,
			Metrics:    metrics.New(),
			Limiter:    limiter,
			Readiness:  readiness(db, rdb),
			Logger:     log,
		},
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	g.Go(func() error {
		return trackingservice.NewSweeper(tracker,
			trackingservice.WithSweepInterval(cfg.Workflow.ReevaluationInterval),
			trackingservice.WithParallelism(cfg.Workflow.SweepParallelism),
			trackingservice.WithSweeperLogger(log),
			trackingservice.WithSweeperMetrics(trackingMetrics),
		).Run(gctx)
	})
	g.Go(func() error {
		return workflowservice.NewWorker(sessions,
			workflowservice.WithPurgeInterval(cfg.Workflow.PurgeInterval),
			workflowservice.WithPurgeTask(workflowservice.PurgeTask{
				Name: "pending_deletions",
				Run:  core.RetryPendingDeletions,
			}),
			workflowservice.WithPurgeTask(workflowservice.PurgeTask{
				Name: "rate_limit_windows",
				Run:  sweepLimits,
			}),
			workflowservice.WithWorkerLogger(log),
		).Run(gctx)
	})
	if cfg.Catalog.Watch && cfg.Catalog.CalendarDir != "" {
		g.Go(func() error {
			return calendarloader.Watch(gctx, cfg.Catalog.CalendarDir, calendarSvc, log)
		})
	}
	if err := startRelay(gctx, g, cfg.Kafka, st.outbox, log); err != nil {
		return err
	}

	log.Info("sahayak started",
		"addr", cfg.Server.Addr,
		"postgres", db != nil,
		"redis", rdb != nil,
		"remote_retrieval", cfg.Collaborators.RetrievalURL != "",
		"extraction", cfg.Collaborators.ExtractionURL != "",
		"speech", cfg.Collaborators.SpeechURL != "",
		"generation", cfg.Collaborators.GenerationURL != "",
	)
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// collaboratorDeps guards every collaborator that has a URL. The rest stay
// nil and the workflow service treats them as unconfigured.
func collaboratorDeps(cfg config.CollaboratorConfig, client *http.Client, invoker func(string) *collaborator.Invoker) workflowservice.Dependencies {
	var deps workflowservice.Dependencies
	if cfg.ExtractionURL != "" {
		deps.Extractor = collaborator.GuardExtractor(collaborator.NewHTTPExtractor(cfg.ExtractionURL, client), invoker("extraction"))
	}
	if cfg.SpeechURL != "" {
		deps.Speech = collaborator.GuardSpeech(collaborator.NewHTTPSpeech(cfg.SpeechURL, client), invoker("speech"))
	}
	if cfg.GenerationURL != "" {
		deps.Generator = collaborator.GuardGenerator(collaborator.NewHTTPGenerator(cfg.GenerationURL, client), invoker("generation"))
	}
	return deps
}

func openStores(db *sql.DB, rdb *redis.Client, cfg config.Config, log *slog.Logger) stores {
	var st stores
	if db != nil {
		outbox := auditpostgres.New(db)
		st = stores{
			calendars:    calendarstore.NewPostgres(db),
			timelines:    timelinestore.NewPostgres(db),
			parcels:      eligibilitystore.NewPostgres(db),
			applications: trackingstore.NewPostgres(db),
			deletions:    corestore.NewPostgres(db),
			audit:        outbox,
			outbox:       outbox,
		}
	} else {
		log.Warn("DATABASE_URL not set; using in-memory stores")
		st = stores{
			calendars:    calendarstore.NewInMemory(),
			timelines:    timelinestore.NewInMemory(),
			parcels:      eligibilitystore.NewInMemory(),
			applications: trackingstore.NewInMemory(),
			deletions:    corestore.NewInMemory(),
			audit:        auditmemory.NewInMemoryStore(),
		}
	}
	if rdb != nil {
		st.sessions = workflowstore.NewRedis(rdb.Client, workflowstore.WithTTL(cfg.Workflow.RetentionWindow))
	} else {
		st.sessions = workflowstore.NewInMemory()
	}
	return st
}

func readiness(db *sql.DB, rdb *redis.Client) map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = rdb.Health
	}
	return checks
}

// newLimiter shares request budgets through redis when it is configured.
// The returned sweep drops idle in-memory windows and is nil for redis, where
// keys expire on their own.
func newLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *slog.Logger) (*ratelimit.Middleware, func(context.Context) error) {
	limits := map[ratelimitmodels.Class]ratelimitmodels.Limit{
		ratelimitmodels.ClassConversation: {Requests: cfg.ConversationPerWindow, Window: cfg.Window},
		ratelimitmodels.ClassVoice:        {Requests: cfg.VoicePerWindow, Window: cfg.Window},
		ratelimitmodels.ClassAdmin:        {Requests: cfg.AdminPerWindow, Window: cfg.Window},
	}
	opts := []ratelimit.Option{
		ratelimit.WithDisabled(!cfg.Enabled),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
	}
	if rdb != nil {
		return ratelimit.New(ratelimitstore.NewRedis(rdb.Client), limits, log, opts...), nil
	}
	mem := ratelimitstore.NewInMemory()
	sweep := func(context.Context) error {
		if n := mem.Sweep(cfg.Window); n > 0 {
			log.Debug("rate limit windows swept", "keys", n)
		}
		return nil
	}
	return ratelimit.New(mem, limits, log, opts...), sweep
}

// loadCatalogs publishes the YAML calendars and schemes and returns the
// timeline rules read from file.
func loadCatalogs(ctx context.Context, cfg config.CatalogConfig, calendars calendarloader.Publisher, schemes *eligibilitycatalog.Catalog, log *slog.Logger) ([]timelinemodels.Rule, error) {
	if cfg.CalendarDir != "" {
		docs, err := calendarloader.LoadDir(cfg.CalendarDir)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn("calendar directory not found", "dir", cfg.CalendarDir)
		case err != nil:
			return nil, err
		}
		for _, doc := range docs {
			if err := calendarloader.Apply(ctx, calendars, doc); err != nil {
				return nil, err
			}
		}
	}

	var rules []timelinemodels.Rule
	if cfg.TimelineFile != "" {
		loaded, err := timelineloader.LoadFile(cfg.TimelineFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn("timeline catalog not found", "file", cfg.TimelineFile)
		case err != nil:
			return nil, err
		default:
			rules = loaded
		}
	}

	if cfg.SchemeFile != "" {
		loaded, err := eligibilitycatalog.LoadFile(cfg.SchemeFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn("scheme catalog not found", "file", cfg.SchemeFile)
		case err != nil:
			return nil, err
		default:
			snap, err := schemes.Replace(loaded)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", cfg.SchemeFile, err)
			}
			log.Info("scheme catalog loaded", "schemes", len(loaded), "version", snap.Version())
		}
	}
	return rules, nil
}

// publishNewRules publishes file rules that are not yet in the catalog, so
// restarts do not append duplicates to the rule history.
func publishNewRules(ctx context.Context, svc *timelineservice.Service, rules []timelinemodels.Rule) error {
	snap := svc.Snapshot()
	for _, rule := range rules {
		if published(snap.History(rule.Key()), rule) {
			continue
		}
		if _, err := svc.Publish(ctx, rule); err != nil {
			return fmt.Errorf("publish timeline rule %s: %w", rule.Key(), err)
		}
	}
	return nil
}

func published(history []timelinemodels.Rule, rule timelinemodels.Rule) bool {
	for _, h := range history {
		if h.SourceVersion == rule.SourceVersion && h.EffectiveFrom.Equal(rule.EffectiveFrom) {
			return true
		}
	}
	return false
}

// startRelay ships the audit outbox to Kafka when both postgres and brokers
// are configured.
func startRelay(ctx context.Context, g *errgroup.Group, cfg config.KafkaConfig, outbox *auditpostgres.Store, log *slog.Logger) error {
	if outbox == nil || len(cfg.Brokers) == 0 {
		return nil
	}
	producer, err := kafka.NewProducer(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
		producer.Close()
		return err
	}
	relay := auditworker.NewRelay(outbox, producer,
		auditworker.WithInterval(cfg.RelayInterval),
		auditworker.WithLogger(log),
	)
	g.Go(func() error {
		defer producer.Close()
		return relay.Run(ctx)
	})
	return nil
}
