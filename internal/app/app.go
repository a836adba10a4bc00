// Package app wires the database, collaborators and HTTP surface into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gymmind/coach-api/internal/config"
	"github.com/gymmind/coach-api/internal/db"
	"github.com/gymmind/coach-api/internal/gate"
	"github.com/gymmind/coach-api/internal/generator"
	"github.com/gymmind/coach-api/internal/http/api/admin"
	"github.com/gymmind/coach-api/internal/http/api/front"
	"github.com/gymmind/coach-api/internal/identity"
	"github.com/gymmind/coach-api/internal/mailer"
	"github.com/gymmind/coach-api/internal/ratelimit"
	"github.com/gymmind/coach-api/internal/renderer"
	internalsettings "github.com/gymmind/coach-api/internal/settings"
	"github.com/gymmind/coach-api/internal/store"

	log "github.com/sirupsen/logrus"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the coach API server with database-backed components. It
// blocks until ctx is cancelled, then drains in-flight requests.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtCfg, _ := config.LoadJWTConfig(configPath)
	if jwtCfg.Secret == "" {
		return fmt.Errorf("missing jwt secret (set `jwt.secret` in config file or %s)", config.EnvJWTSecret)
	}
	generatorCfg, _ := config.LoadGeneratorConfig(configPath)

	internalsettings.Bind(conn)

	engine := buildRouter(conn, jwtCfg, generatorCfg)

	if port <= 0 {
		port = 8318
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting coach api on port %d with config=%s", port, configPath)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// buildRouter assembles the gin engine with all collaborators wired.
func buildRouter(conn *gorm.DB, jwtCfg config.JWTConfig, generatorCfg config.GeneratorConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	accounts := store.NewGormAccountStore(conn)
	quotaGate := gate.New(accounts)

	front.RegisterFrontRoutes(engine, front.Dependencies{
		DB:        conn,
		Accounts:  accounts,
		Gate:      quotaGate,
		Identity:  identity.NewLocalProvider(accounts),
		Generator: generator.NewHTTPGenerator(generatorCfg),
		Renderer:  renderer.NewHTMLRenderer(),
		Mailer:    mailer.NewLogMailer(),
		Limits:    ratelimit.NewManager(nil, nil, nil),
		JWT:       jwtCfg,
	})
	admin.RegisterAdminRoutes(engine, conn, accounts, jwtCfg)
	return engine
}
