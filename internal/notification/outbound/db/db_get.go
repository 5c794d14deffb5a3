package db

import (
	"context"

	"github.com/shandysiswandi/penagih/internal/notification/entity"
)

const getBusinessChannelConfigQuery = `
SELECT business_id, notifications_enabled, push_enabled, sms_enabled, whatsapp_enabled, COALESCE(contact_phone, '')
FROM business_settings
WHERE business_id = $1`

// GetBusinessChannelConfig reads the per-business flags channel selection
// depends on. Missing settings rows map to goerror.ErrNotFound; callers treat
// that as notifications disabled.
func (s *DB) GetBusinessChannelConfig(ctx context.Context, businessID int64) (_ *entity.ChannelConfig, err error) {
	ctx, span := s.startSpan(ctx, "GetBusinessChannelConfig")
	defer func() { s.endSpan(span, err) }()

	var cfg entity.ChannelConfig
	err = s.conn.QueryRow(ctx, getBusinessChannelConfigQuery, businessID).Scan(
		&cfg.BusinessID, &cfg.NotificationsEnabled, &cfg.PushEnabled,
		&cfg.SMSEnabled, &cfg.WhatsAppEnabled, &cfg.ContactPhone,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &cfg, nil
}

const listLiveDeviceTokensQuery = `
SELECT device_token
FROM user_devices
WHERE user_id = $1 AND trusted = TRUE AND revoked_at IS NULL
ORDER BY created_at DESC
LIMIT $2`

// ListLiveDeviceTokens returns the user's trusted, unrevoked push tokens.
func (s *DB) ListLiveDeviceTokens(ctx context.Context, userID int64, limit int32) (_ []string, err error) {
	ctx, span := s.startSpan(ctx, "ListLiveDeviceTokens")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listLiveDeviceTokensQuery, userID, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	tokens := make([]string, 0, limit)
	for rows.Next() {
		var token string
		if err = rows.Scan(&token); err != nil {
			return nil, s.mapError(err)
		}
		tokens = append(tokens, token)
	}

	return tokens, s.mapError(rows.Err())
}
