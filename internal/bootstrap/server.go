package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	app "github.com/mohammadpnp/wiki-auth/internal/application/auth"
	"github.com/mohammadpnp/wiki-auth/internal/config"
	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/remote"
	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/repository"
	httpecho "github.com/mohammadpnp/wiki-auth/internal/interfaces/http/echo"
)

func NewHTTPServer(cfg *config.Config, db *gorm.DB, pool *pgxpool.Pool, logger *logrus.Logger) *echo.Echo {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.BodyLimit("1M"))

	accountRepo := repository.NewAccountRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	optionRepo := repository.NewOptionRepository(db, cfg.DefaultUserOptions)
	actorRepo := repository.NewActorRepository(db)
	jobRepo := repository.NewJobRepository(db)
	reattributionRepo := repository.NewReattributionRepository(pool)

	stash := app.NewCredentialStash(cfg.CredentialStashTTL)
	actorIndex := app.NewActorMigrationIndex(actorRepo)
	scheduler := app.NewReattributionScheduler(cfg, actorIndex, reattributionRepo, jobRepo, logger)
	importer := app.NewImporter(cfg, accountRepo, groupRepo, optionRepo, jobRepo, stash, scheduler, logger)

	newClient := func() (app.RemoteClient, error) {
		return remote.New(cfg.RemoteAPIURL, cfg.RemoteTimeout, logger)
	}
	negotiator := app.NewNegotiator(cfg, newClient, accountRepo, stash, importer, logger)

	authHandler := httpecho.NewAuthHandler(negotiator, importer, accountRepo, logger)
	httpecho.RegisterRoutes(server, authHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	return server
}
