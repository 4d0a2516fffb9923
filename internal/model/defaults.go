package model

import "time"

// Shared defaults used by both the client and service binaries.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultServerURL    = "http://127.0.0.1:8800"
	DefaultAPIAddr      = "127.0.0.1:8800"
	DefaultTheme        = "default"

	// Endpoint paths the client polls and posts to. All overridable via config.
	DefaultStatusPath  = "/api/plans/statuses"
	DefaultPlansPath   = "/api/plans"
	DefaultReaggPrefix = "/api/plans/"
	DefaultReaggSuffix = "/reaggregate"
)
