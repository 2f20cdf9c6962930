package config

import "time"

// Static is a fixed configuration, used by tests and by callers that build
// their configuration from flags instead of the environment.
type Static struct {
	Port                string
	AppName             string
	Env                 string
	LogLevel            string
	Origins             AllowedOrigins
	APIBaseURL          string
	RequestTimeout      time.Duration
	TokenStoreDriver    string
	TokenStorePath      string
	PushURL             string
	SigningSecret       string
	AccessTokenExpiry   time.Duration
	RefreshTokenExpiry  time.Duration
	RotateRefreshTokens bool
}

var _ Config = Static{}

func (s Static) GetPort() string                      { return s.Port }
func (s Static) GetAppName() string                   { return s.AppName }
func (s Static) GetEnv() string                       { return s.Env }
func (s Static) GetLogLevel() string                  { return s.LogLevel }
func (s Static) GetAllowedOrigins() AllowedOrigins    { return s.Origins }
func (s Static) GetAllowedMethods() string            { return Cors{}.GetAllowedMethods() }
func (s Static) GetAllowedHeaders() string            { return Cors{}.GetAllowedHeaders() }
func (s Static) GetAPIBaseURL() string                { return s.APIBaseURL }
func (s Static) GetTokenStoreDriver() string          { return s.TokenStoreDriver }
func (s Static) GetTokenStorePath() string            { return s.TokenStorePath }
func (s Static) GetPushURL() string                   { return s.PushURL }
func (s Static) GetSigningSecret() string             { return s.SigningSecret }
func (s Static) GetRotateRefreshTokens() bool         { return s.RotateRefreshTokens }
func (s Static) GetRefreshTokenLength() int           { return Tokens{}.GetRefreshTokenLength() }
func (s Static) GetAccessTokenExpiry() time.Duration  { return s.AccessTokenExpiry }
func (s Static) GetRefreshTokenExpiry() time.Duration { return s.RefreshTokenExpiry }

func (s Static) GetRequestTimeout() time.Duration {
	if s.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return s.RequestTimeout
}
