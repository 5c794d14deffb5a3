package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/pkg/config"
	"github.com/shandysiswandi/penagih/internal/pkg/cronlock"
	"github.com/shandysiswandi/penagih/internal/pkg/goroutine"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/messaging"
	"github.com/shandysiswandi/penagih/internal/pkg/router"
	"github.com/shandysiswandi/penagih/internal/pkg/scheduler"
	"github.com/shandysiswandi/penagih/internal/pkg/uid"
	"github.com/shandysiswandi/penagih/internal/pkg/validator"
)

// App wires dependencies and manages the engine process lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	business  *clock.Business
	uid       uid.NumberID
	uuid      uid.StringID

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	messaging messaging.Messaging
	locker    cronlock.Locker

	// engine
	scheduler  *scheduler.Scheduler
	router     *router.Router
	httpServer *http.Server

	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initMessaging()
	app.initScheduler()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
