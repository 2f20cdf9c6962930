package config

import "time"

const (
	jwtSecretEnvVar     = "LOGDASH_JWT_SECRET"
	accessExpiryEnvVar  = "LOGDASH_ACCESS_TOKEN_LIFETIME"
	refreshExpiryEnvVar = "LOGDASH_REFRESH_TOKEN_LIFETIME"
	rotateEnvVar        = "LOGDASH_ROTATE_REFRESH_TOKENS"
)

type Tokens struct{}

var _ TokenConfig = Tokens{}

func (Tokens) GetSigningSecret() string {
	return GetEnv(jwtSecretEnvVar, "insecure-dev-secret-change-me")
}

func (Tokens) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration(accessExpiryEnvVar, 60*time.Minute)
}

func (Tokens) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration(refreshExpiryEnvVar, 7*24*time.Hour)
}

func (Tokens) GetRotateRefreshTokens() bool {
	return GetEnvBool(rotateEnvVar, true)
}

func (Tokens) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}
