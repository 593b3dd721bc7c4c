package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/hacknrollers/FHIR-fly/internal/config"
	"github.com/hacknrollers/FHIR-fly/internal/domain/auditlog"
	"github.com/hacknrollers/FHIR-fly/internal/domain/codesystem"
	"github.com/hacknrollers/FHIR-fly/internal/domain/concept"
	"github.com/hacknrollers/FHIR-fly/internal/domain/conceptmap"
	"github.com/hacknrollers/FHIR-fly/internal/domain/terminology"
	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
	"github.com/hacknrollers/FHIR-fly/internal/platform/db"
	"github.com/hacknrollers/FHIR-fly/internal/platform/loader"
	"github.com/hacknrollers/FHIR-fly/internal/platform/middleware"
)

const version = "1.0.0"

// app holds the storage handles and services shared by every command.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	reg    *prometheus.Registry

	pool  *pgxpool.Pool
	sqlDB *sql.DB

	codesystems *codesystem.Service
	concepts    *concept.Service
	conceptmaps *conceptmap.Service
	auditlogs   *auditlog.Service
	translator  *terminology.Translator
	importer    *loader.Importer
}

type repos struct {
	codesystems codesystem.Repository
	concepts    concept.Repository
	conceptmaps conceptmap.Repository
	auditlogs   auditlog.Repository
}

// newApp connects to the configured backend and wires the services. SQLite
// is selected by a sqlite: or file: DATABASE_URL, PostgreSQL otherwise.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, reg: prometheus.NewRegistry()}
	a.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var r repos
	if db.IsSQLite(cfg.DatabaseURL) {
		sqlDB, err := db.OpenSQLite(ctx, db.SQLitePath(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		a.sqlDB = sqlDB
		r = repos{
			codesystems: codesystem.NewRepoSQLite(sqlDB),
			concepts:    concept.NewRepoSQLite(sqlDB),
			conceptmaps: conceptmap.NewRepoSQLite(sqlDB),
			auditlogs:   auditlog.NewRepoSQLite(sqlDB),
		}
		logger.Info().Str("backend", "sqlite").Msg("connected to database")
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		r = repos{
			codesystems: codesystem.NewRepoPG(pool),
			concepts:    concept.NewRepoPG(pool),
			conceptmaps: conceptmap.NewRepoPG(pool),
			auditlogs:   auditlog.NewRepoPG(pool),
		}
		logger.Info().Str("backend", "postgres").Msg("connected to database")
	}

	rec := audit.NewRecorder(r.auditlogs, logger, cfg.AuditTimeout, a.reg)
	metrics := terminology.NewMetrics(a.reg)
	labels := terminology.Labels{Source: cfg.EnrichSourceLabel, Target: cfg.EnrichTargetLabel}

	a.codesystems = codesystem.NewService(r.codesystems, rec)
	a.concepts = concept.NewService(r.concepts, rec)
	a.concepts.SetEnricher(terminology.NewEnricher(r.conceptmaps, labels, metrics))
	a.conceptmaps = conceptmap.NewService(r.conceptmaps, rec)
	a.auditlogs = auditlog.NewService(r.auditlogs)
	a.translator = terminology.NewTranslator(a.codesystems, r.conceptmaps, metrics)
	a.importer = loader.NewImporter(a.codesystems, a.concepts, logger)
	return a, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
}

func (a *app) pinger() db.Pinger {
	if a.pool != nil {
		return a.pool
	}
	return db.SQLPinger{DB: a.sqlDB}
}

// echo builds the HTTP server with middleware and every route registered.
func (a *app) echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(a.logger)

	httpMetrics := middleware.NewHTTPMetrics(a.reg)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Actor())
	e.Use(middleware.Logger(a.logger))
	e.Use(httpMetrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit(a.cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID", "X-User-ID"},
	}))

	e.GET("/health", db.Health(a.pinger(), version))
	if a.pool != nil {
		e.GET("/health/db", db.PoolHealthHandler(a.pool))
	}
	e.GET("/metrics", middleware.MetricsHandler(a.reg))

	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir")
	apiV1.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))
	fhirGroup.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))
	if a.pool != nil {
		apiV1.Use(db.ConnMiddleware(a.pool))
		fhirGroup.Use(db.ConnMiddleware(a.pool))
	}

	codesystem.NewHandler(a.codesystems).RegisterRoutes(apiV1, fhirGroup)
	concept.NewHandler(a.concepts).RegisterRoutes(apiV1)
	conceptmap.NewHandler(a.conceptmaps).RegisterRoutes(apiV1)
	auditlog.NewHandler(a.auditlogs).RegisterRoutes(apiV1)
	terminology.NewHandler(a.translator).RegisterRoutes(apiV1, fhirGroup)

	return e
}
