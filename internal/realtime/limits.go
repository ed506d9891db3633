package realtime

import "time"

// Transport limits for the websocket gateway.
const (
	// Max bytes per websocket frame read (hard limit).
	maxFrameBytes = 64 << 10 // 64 KiB

	// Max post content length (runes).
	maxContentChars = 4000
)

const (
	// Heartbeat defaults (overridable via env in the gateway).
	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Per-connection inbound event rate (events per window).
	rateLimitEvents = 120
	rateLimitWindow = 10 * time.Second
)
