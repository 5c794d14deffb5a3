// Package recovery owns the automation side of collections: the escalation
// state machine, the event generators and the lock-guarded overdue sweep.
package recovery

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	notifusecase "github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/pkg/config"
	"github.com/shandysiswandi/penagih/internal/pkg/cronlock"
	"github.com/shandysiswandi/penagih/internal/pkg/goroutine"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/messaging"
	"github.com/shandysiswandi/penagih/internal/pkg/scheduler"
	"github.com/shandysiswandi/penagih/internal/pkg/validator"
	"github.com/shandysiswandi/penagih/internal/recovery/inbound"
	"github.com/shandysiswandi/penagih/internal/recovery/outbound/db"
	"github.com/shandysiswandi/penagih/internal/recovery/outbound/mq"
	"github.com/shandysiswandi/penagih/internal/recovery/usecase"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	CacheConn  *redis.Client              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Scheduler  *scheduler.Scheduler       `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Locker     cronlock.Locker            `validate:"required"`
	Notifier   *notifusecase.Usecase      `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Business   *clock.Business            `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// New wires the recovery module and registers its periodic jobs.
func New(dep Dependency) (*usecase.Usecase, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	repo := db.NewDB(dep.DBConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repo,
		RepoMessaging: repoMsg,
		Notifier:      dep.Notifier,
		Locker:        dep.Locker,
		Cache:         dep.CacheConn,
		Config:        dep.Config,
		Clock:         dep.Clock,
		Business:      dep.Business,
		Goroutine:     dep.Goroutine,
		Validator:     dep.Validator,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterJobs(dep.Scheduler, uc, dep.Config)

	return uc, nil
}
