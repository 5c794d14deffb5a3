// Package notification owns reliable delivery: the idempotent notification
// store, per-channel delivery attempts and the worker that drives them to
// sent or dead.
package notification

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/notification/inbound"
	"github.com/shandysiswandi/penagih/internal/notification/outbound/db"
	"github.com/shandysiswandi/penagih/internal/notification/outbound/inapp"
	"github.com/shandysiswandi/penagih/internal/notification/outbound/mq"
	"github.com/shandysiswandi/penagih/internal/notification/outbound/push"
	"github.com/shandysiswandi/penagih/internal/notification/outbound/sms"
	"github.com/shandysiswandi/penagih/internal/notification/outbound/whatsapp"
	"github.com/shandysiswandi/penagih/internal/notification/usecase"
	"github.com/shandysiswandi/penagih/internal/pkg/clock"
	"github.com/shandysiswandi/penagih/internal/pkg/config"
	"github.com/shandysiswandi/penagih/internal/pkg/goroutine"
	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/messaging"
	"github.com/shandysiswandi/penagih/internal/pkg/scheduler"
	"github.com/shandysiswandi/penagih/internal/pkg/uid"
	"github.com/shandysiswandi/penagih/internal/pkg/validator"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	CacheConn  *redis.Client              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Scheduler  *scheduler.Scheduler       `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// New wires the notification module and registers its delivery job. It
// returns the usecase so other modules can create notifications through it.
func New(dep Dependency) (*usecase.Usecase, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	repo := db.NewDB(dep.DBConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	transports := map[entity.Channel]usecase.Transport{
		entity.ChannelInApp: inapp.New(dep.DBConn, dep.Clock, dep.Instrument),
		entity.ChannelPush: push.New(push.Config{
			Endpoint:  dep.Config.GetString("transport.push.endpoint"),
			ServerKey: dep.Config.GetString("transport.push.server_key"),
			Timeout:   dep.Config.GetSecond("transport.push.timeout_seconds"),
		}, dep.Instrument),
		entity.ChannelSMS: sms.New(sms.Config{
			BaseURL:  dep.Config.GetString("transport.sms.base_url"),
			APIKey:   dep.Config.GetString("transport.sms.api_key"),
			SenderID: dep.Config.GetString("transport.sms.sender_id"),
			Timeout:  dep.Config.GetSecond("transport.sms.timeout_seconds"),
		}, dep.Instrument),
		entity.ChannelWhatsApp: whatsapp.New(whatsapp.Config{
			BaseURL:     dep.Config.GetString("transport.whatsapp.base_url"),
			AccessToken: dep.Config.GetString("transport.whatsapp.access_token"),
			PhoneID:     dep.Config.GetString("transport.whatsapp.phone_id"),
			Timeout:     dep.Config.GetSecond("transport.whatsapp.timeout_seconds"),
		}, dep.Instrument),
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repo,
		RepoMessaging: repoMsg,
		Transports:    transports,
		Cache:         dep.CacheConn,
		Config:        dep.Config,
		UID:           dep.UID,
		Clock:         dep.Clock,
		Validator:     dep.Validator,
		Goroutine:     dep.Goroutine,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterJobs(dep.Scheduler, uc, dep.Config)

	return uc, nil
}
