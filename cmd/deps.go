package cmd

import (
	"context"
	"net/http"

	"example.com/backstage/services/laundry/config"
	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/cache"
	"example.com/backstage/services/laundry/internal/eta"
	"example.com/backstage/services/laundry/internal/messaging"
	"example.com/backstage/services/laundry/internal/metrics"
	"example.com/backstage/services/laundry/internal/progress"
	"example.com/backstage/services/laundry/internal/repositories"
	"example.com/backstage/services/laundry/internal/routing"
	"example.com/backstage/services/laundry/internal/search"
	"example.com/backstage/services/laundry/internal/services"
	"example.com/backstage/services/laundry/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// infrastructure holds the connections shared by the api and worker commands
type infrastructure struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
	cache      *cache.RedisCache
	search     *search.ElasticClient
	bus        messaging.Bus
	tracer     tracing.Tracer
	metrics    *metrics.Metrics
}

// appServices is the wired service layer
type appServices struct {
	orders     *services.OrderService
	scheduling *services.SchedulingService
	routing    *services.RoutingService
	tracking   *services.TrackingService
	projection *services.ProjectionService
	processor  *messaging.Processor
}

func initDatabases(cfg config.DatabaseConfig) (*gorm.DB, *gorm.DB, error) {
	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), gormConfig)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, nil, err
	}

	if cfg.ReadOnlyDSN == "" || cfg.ReadOnlyDSN == cfg.DSN {
		return db, db, nil
	}

	readOnlyDB, err := gorm.Open(postgres.Open(cfg.ReadOnlyDSN), gormConfig)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to read-only database, reading from the write database")
		return db, db, nil
	}
	if err := configurePool(readOnlyDB, cfg); err != nil {
		return nil, nil, err
	}

	return db, readOnlyDB, nil
}

func configurePool(db *gorm.DB, cfg config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return nil
}

// newInfrastructure connects to every backing service. Only the database is required;
// the others degrade with a warning.
func newInfrastructure(cfg config.Config) (*infrastructure, error) {
	m := metrics.NewMetrics()

	db, readOnlyDB, err := initDatabases(cfg.DB)
	if err != nil {
		return nil, err
	}
	m.SetHealth("database", true)

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache, _ = cache.NewRedisCache(config.RedisConfig{Enabled: false})
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.Disabled()
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
		elasticClient = nil
	}

	bus, err := messaging.NewBus(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize message bus")
	}

	return &infrastructure{
		db:         db,
		readOnlyDB: readOnlyDB,
		cache:      redisCache,
		search:     elasticClient,
		bus:        bus,
		tracer:     tracer,
		metrics:    m,
	}, nil
}

func (i *infrastructure) Close() {
	if err := i.bus.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close message bus")
	}
	if err := i.cache.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close Redis cache")
	}
	i.tracer.Close()

	closeDB := func(db *gorm.DB) {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	closeDB(i.db)
	if i.readOnlyDB != i.db {
		closeDB(i.readOnlyDB)
	}
}

// orderIndex returns the search index, or an untyped nil when search is disabled
func (i *infrastructure) orderIndex() services.OrderIndex {
	if i.search == nil {
		return nil
	}
	return i.search
}

func (i *infrastructure) progressStore(cfg config.ProgressConfig) progress.Store {
	if i.cache.Enabled() {
		return progress.NewRedisStore(i.cache, cfg.Key)
	}
	log.Warn().Msg("Redis disabled, item progress is kept in memory")
	return progress.NewMemoryStore()
}

// tokenParser verifies bearer tokens, or only decodes them when verification is off
func tokenParser(cfg config.AuthConfig) (auth.TokenParser, error) {
	if !cfg.Verify {
		log.Warn().Msg("Bearer token verification disabled")
		return auth.UnverifiedParser{}, nil
	}
	issuer, err := auth.NewIssuer(cfg.Secret, cfg.TokenTTL)
	if err != nil {
		return nil, errors.Wrap(err, "auth.secret is required when auth.verify is on")
	}
	return issuer, nil
}

func newServices(cfg config.Config, infra *infrastructure) *appServices {
	orderRepo := repositories.NewOrderRepository(infra.db, infra.readOnlyDB)
	customerRepo := repositories.NewCustomerRepository(infra.db, infra.readOnlyDB)
	slotRepo := repositories.NewTimeSlotRepository(infra.db, infra.readOnlyDB)
	requestRepo := repositories.NewSchedulingRequestRepository(infra.db, infra.readOnlyDB)
	routeRepo := repositories.NewRouteRepository(infra.db, infra.readOnlyDB)
	driverRepo := repositories.NewDriverLocationRepository(infra.db, infra.readOnlyDB)

	index := infra.orderIndex()
	tracker := progress.NewTracker(infra.progressStore(cfg.Progress))
	depot := routing.Point{Lat: cfg.Routing.DepotLat, Lng: cfg.Routing.DepotLng}

	svc := &appServices{}
	svc.orders = services.NewOrderService(orderRepo, customerRepo, tracker, index, infra.bus, infra.tracer, infra.metrics, cfg.Pricing)
	svc.scheduling = services.NewSchedulingService(requestRepo, slotRepo, orderRepo, infra.cache, infra.bus, infra.tracer, infra.metrics)
	svc.routing = services.NewRoutingService(orderRepo, routeRepo, driverRepo, infra.cache, infra.bus, infra.tracer, infra.metrics, depot)
	svc.tracking = services.NewTrackingService(orderRepo, routeRepo, svc.routing,
		eta.NewHTTPProvider(cfg.Directions, http.DefaultClient), cfg.Tracking.ServiceTime(), infra.metrics)
	svc.projection = services.NewProjectionService(orderRepo, index, infra.metrics)
	svc.processor = messaging.NewProcessor(svc.projection, infra.metrics)
	return svc
}

// checkHealth records the reachability of the optional backing services
func (i *infrastructure) checkHealth(ctx context.Context) {
	if i.cache.Enabled() {
		i.metrics.SetHealth("redis", i.cache.Ping(ctx) == nil)
	}
	if i.search != nil {
		i.metrics.SetHealth("elasticsearch", i.search.Ping(ctx) == nil)
	}
}
