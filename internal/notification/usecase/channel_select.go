package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
	"github.com/shandysiswandi/penagih/internal/pkg/goerror"
)

const (
	channelConfigCacheKey = "penagih:channel_config:%d"
	channelConfigCacheTTL = time.Minute
	maxDeviceTokens       = 20
)

// selectChannels resolves which channels a new notification targets:
// in_app is unconditional, push needs the flag plus at least one live device,
// sms and whatsapp need the flag plus a contact number.
//
// An empty result means the business has notifications switched off entirely.
func (s *Usecase) selectChannels(ctx context.Context, businessID, userID int64) ([]entity.Channel, error) {
	cfg, err := s.channelConfig(ctx, businessID)
	if err != nil {
		return nil, err
	}

	if !cfg.NotificationsEnabled {
		return nil, nil
	}

	channels := []entity.Channel{entity.ChannelInApp}

	if cfg.PushEnabled {
		tokens, err := s.repoDB.ListLiveDeviceTokens(ctx, userID, maxDeviceTokens)
		if err != nil {
			return nil, err
		}
		if len(tokens) > 0 {
			channels = append(channels, entity.ChannelPush)
		}
	}

	if cfg.SMSEnabled && cfg.ContactPhone != "" {
		channels = append(channels, entity.ChannelSMS)
	}

	if cfg.WhatsAppEnabled && cfg.ContactPhone != "" {
		channels = append(channels, entity.ChannelWhatsApp)
	}

	return channels, nil
}

// channelConfig reads the business channel flags through a short-lived cache.
// Cache failures degrade to the store read; a stale entry only delays a flag
// flip by the TTL, it cannot lose a notification.
func (s *Usecase) channelConfig(ctx context.Context, businessID int64) (*entity.ChannelConfig, error) {
	key := fmt.Sprintf(channelConfigCacheKey, businessID)

	if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
		var cfg entity.ChannelConfig
		if err := json.Unmarshal(raw, &cfg); err == nil {
			return &cfg, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "channel config cache read failed", "business_id", businessID, "error", err)
	}

	cfg, err := s.repoDB.GetBusinessChannelConfig(ctx, businessID)
	if errors.Is(err, goerror.ErrNotFound) {
		cfg = &entity.ChannelConfig{BusinessID: businessID}
	} else if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(cfg); err == nil {
		if err := s.cache.Set(ctx, key, raw, channelConfigCacheTTL).Err(); err != nil {
			slog.WarnContext(ctx, "channel config cache write failed", "business_id", businessID, "error", err)
		}
	}

	return cfg, nil
}
