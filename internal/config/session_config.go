package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	apiURLEnvVar      = "LOGDASH_API_URL"
	wsURLEnvVar       = "LOGDASH_WS_URL"
	timeoutEnvVar     = "LOGDASH_TIMEOUT"
	storeDriverEnvVar = "LOGDASH_TOKEN_STORE"
	storePathEnvVar   = "LOGDASH_TOKEN_PATH"

	DefaultRequestTimeout = 10 * time.Second
)

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetAPIBaseURL() string {
	return GetEnv(apiURLEnvVar, "http://localhost:8000/api")
}

func (Session) GetRequestTimeout() time.Duration {
	return GetEnvDuration(timeoutEnvVar, DefaultRequestTimeout)
}

type TokenStore struct{}

var _ TokenStoreConfig = TokenStore{}

// GetTokenStoreDriver is one of memory, file or sqlite.
func (TokenStore) GetTokenStoreDriver() string {
	return GetEnv(storeDriverEnvVar, "file")
}

func (TokenStore) GetTokenStorePath() string {
	if p := GetEnv(storePathEnvVar, ""); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".logdash", "session.json")
	}
	return filepath.Join(home, ".logdash", "session.json")
}

type Push struct{}

var _ PushConfig = Push{}

func (Push) GetPushURL() string {
	return GetEnv(wsURLEnvVar, "ws://localhost:8000/ws/logs/")
}
