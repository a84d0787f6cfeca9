package config

import "time"

type HTTPConfig interface {
	GetHTTPTimeout() time.Duration
	GetUserAgent() string
	GetDumpRequests() bool
	GetTracingEnabled() bool
}

type HTTP struct{}

var _ HTTPConfig = HTTP{}

func (HTTP) GetHTTPTimeout() time.Duration {
	return GetEnvDuration("HTTP_TIMEOUT", 30*time.Second)
}

func (HTTP) GetUserAgent() string {
	return GetEnv("HTTP_USER_AGENT", "oauthctl/1.0")
}

// GetDumpRequests turns on the request/response diagnostic dump.
func (HTTP) GetDumpRequests() bool {
	return GetEnvBool("HTTP_DUMP", false)
}

func (HTTP) GetTracingEnabled() bool {
	return GetEnvBool("OTEL_TRACING", false)
}
