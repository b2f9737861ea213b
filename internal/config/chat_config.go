package config

import "time"

const (
	// History
	DefaultMessageLimit = 50
	MaxMessageLimit     = 500

	// WebSocket
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 4096
	SendBufferSize = 256

	// Redis mirror
	MirrorChannelPrefix = "chat:"
	MirrorPublishWait   = 2 * time.Second
)
