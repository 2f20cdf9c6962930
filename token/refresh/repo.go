package refresh

import (
	"time"
)

// StoredRefreshToken is the server side record of an issued refresh token.
// The client only ever sees Token, an opaque random string.
type StoredRefreshToken struct {
	Token    string
	UserID   int64
	IssuedAt time.Time
}

// Repo stores refresh token records keyed by the token string. A user may
// hold several tokens at once, one per logged in client.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	DeleteByUserID(userID int64) (int, error)
	DeleteIssuedBefore(cutoff time.Time) (int, error)
}
