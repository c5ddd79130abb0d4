package model

import "strings"

type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

func (c Channel) String() string { return string(c) }

func (c Channel) Valid() bool {
	return c == ChannelWhatsApp || c == ChannelSMS
}

// ParseChannel normalizes input; empty => whatsapp.
// Returns (value, true) if valid; otherwise (whatsapp, false).
func ParseChannel(s string) (Channel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "whatsapp":
		return ChannelWhatsApp, true
	case "sms":
		return ChannelSMS, true
	default:
		return ChannelWhatsApp, false
	}
}
