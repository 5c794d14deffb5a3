package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/penagih/internal/notification"
	"github.com/shandysiswandi/penagih/internal/recovery"
)

func (a *App) initModules() {
	notifUC, err := notification.New(notification.Dependency{
		DBConn:     a.dbConn,
		CacheConn:  a.cacheConn,
		Goroutine:  a.goroutine,
		Scheduler:  a.scheduler,
		Messaging:  a.messaging,
		Config:     a.config,
		Instrument: a.ins,
		UID:        a.uid,
		Clock:      a.clock,
		Validator:  a.validator,
	})
	if err != nil {
		slog.Error("failed to init module notification", "error", err)
		os.Exit(1)
	}

	if a.config.GetBool("modules.recovery.enabled") {
		if _, err := recovery.New(recovery.Dependency{
			DBConn:     a.dbConn,
			CacheConn:  a.cacheConn,
			Goroutine:  a.goroutine,
			Scheduler:  a.scheduler,
			Messaging:  a.messaging,
			Locker:     a.locker,
			Notifier:   notifUC,
			Config:     a.config,
			Instrument: a.ins,
			Clock:      a.clock,
			Business:   a.business,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module recovery", "error", err)
			os.Exit(1)
		}
	}
}
