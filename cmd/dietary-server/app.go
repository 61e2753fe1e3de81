package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/config"
	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/domain/facility"
	"github.com/nutritrack/dietary/internal/domain/identity"
	"github.com/nutritrack/dietary/internal/domain/menu"
	"github.com/nutritrack/dietary/internal/domain/ordering"
	"github.com/nutritrack/dietary/internal/domain/patient"
	"github.com/nutritrack/dietary/internal/domain/reporting"
	"github.com/nutritrack/dietary/internal/platform/auth"
	"github.com/nutritrack/dietary/internal/platform/db"
	"github.com/nutritrack/dietary/internal/platform/events"
	"github.com/nutritrack/dietary/internal/platform/mail"
	"github.com/nutritrack/dietary/internal/platform/middleware"
	"github.com/nutritrack/dietary/internal/platform/websocket"
)

const (
	version      = "0.1.0"
	tokenIssuer  = "dietary"
	liveFeedPath = "/api/v1/live"
)

// services holds every domain service, wired to one pool and publisher.
type services struct {
	tokens   *auth.TokenIssuer
	catalog  *catalog.Service
	facility *facility.Service
	menus    *menu.Service
	orders   *ordering.Service
	patients *patient.Service
	reports  *reporting.Service
	users    *identity.Service

	orderRepo ordering.Repository
}

func buildServices(cfg *config.Config, pool *pgxpool.Pool, publisher events.Publisher, mailer identity.ResetMailer) (*services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	s := &services{
		tokens:    auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn, tokenIssuer),
		orderRepo: ordering.NewRepo(pool),
	}

	s.catalog = catalog.NewService(catalog.NewDietRepo(pool), catalog.NewProductionAreaRepo(pool), catalog.NewMenuItemRepo(pool))
	s.facility = facility.NewService(facility.NewUnitRepo(pool), facility.NewRoomRepo(pool))
	s.menus = menu.NewService(menu.NewRepo(pool), s.catalog)
	s.patients = patient.NewService(patient.NewRepo(pool), s.facility, s.catalog, s.orderRepo, publisher)
	s.orders = ordering.NewService(ordering.NewEngine(s.catalog, loc), s.orderRepo, s.patients, s.menus, s.catalog, publisher)
	s.reports = reporting.NewService(reporting.NewRepo(pool))

	s.users = identity.NewService(identity.NewUserRepo(pool), s.tokens, mailer)
	s.users.SelfAssignRoles = cfg.IsDev()
	return s, nil
}

func newMailer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*mail.Mailer, error) {
	var sender mail.Sender
	switch cfg.MailProvider {
	case "ses":
		ses, err := mail.NewSESSender(ctx, cfg.AWSRegion, cfg.MailFrom)
		if err != nil {
			return nil, fmt.Errorf("ses mailer: %w", err)
		}
		sender = ses
	default:
		sender = mail.NewLogSender(logger)
	}
	return mail.NewMailer(sender, cfg.ProjectName, cfg.PublicURL), nil
}

type serverDeps struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	svc     *services
	hub     *websocket.Hub
	revoked *auth.TokenRevocationStore
	logger  zerolog.Logger
}

// newServer builds the echo instance with the full middleware chain and
// every route.
func newServer(d serverDeps) *echo.Echo {
	cfg, logger := d.cfg, d.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger, cfg.IsDev())

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.RequestTimeout(30*time.Second, liveFeedPath))

	jwtCfg := auth.JWTConfig{
		Tokens:  d.svc.tokens,
		Users:   d.svc.users,
		Revoked: d.revoked,
		Skipper: auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(d.pool))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))

	identity.NewHandler(d.svc.users, d.revoked, !cfg.IsDev()).RegisterRoutes(api)
	catalog.NewHandler(d.svc.catalog).RegisterRoutes(api)
	facility.NewHandler(d.svc.facility).RegisterRoutes(api)
	menu.NewHandler(d.svc.menus).RegisterRoutes(api)
	patient.NewHandler(d.svc.patients).RegisterRoutes(api)
	ordering.NewHandler(d.svc.orders).RegisterRoutes(api)
	reporting.NewHandler(d.svc.reports).RegisterRoutes(api)

	live := api.Group("/live")
	websocket.NewHandler(d.hub, cfg.CORSOrigins, auth.UserIDFromContext).RegisterRoutes(live)

	return e
}
