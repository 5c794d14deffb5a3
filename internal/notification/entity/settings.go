package entity

// ChannelConfig is the per-business switchboard for outbound channels. A
// missing row means the business never configured notifications and is
// treated as fully disabled.
type ChannelConfig struct {
	BusinessID           int64
	NotificationsEnabled bool
	PushEnabled          bool
	SMSEnabled           bool
	WhatsAppEnabled      bool
	ContactPhone         string
}
