package config

import "time"

// Config is the full configuration surface, composed per concern so that
// packages only depend on the part they read.
type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	TokenStoreConfig
	PushConfig
	TokenConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// SessionConfig is read by the authenticated session client.
type SessionConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
}

type TokenStoreConfig interface {
	GetTokenStoreDriver() string
	GetTokenStorePath() string
}

type PushConfig interface {
	GetPushURL() string
}

// TokenConfig is read by the mock backend when issuing tokens.
type TokenConfig interface {
	GetSigningSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRotateRefreshTokens() bool
	GetRefreshTokenLength() int
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	TokenStore
	Push
	Tokens
}

func New() Config {
	return mainConfig{}
}
