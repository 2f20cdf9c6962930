package refreshfakerepo

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/jrsteele09/go-log-dashboard/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens map[string]*refresh.StoredRefreshToken
	lock   sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens: make(map[string]*refresh.StoredRefreshToken),
	}
}

func (r *FakeRefreshTokenRepo) Upsert(refreshToken *refresh.StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	cp := *refreshToken
	r.tokens[refreshToken.Token] = &cp
	return nil
}

func (r *FakeRefreshTokenRepo) Delete(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.tokens[token]; !ok {
		return errors.ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *FakeRefreshTokenRepo) Get(token string) (*refresh.StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (r *FakeRefreshTokenRepo) DeleteByUserID(userID int64) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	n := 0
	for k, rt := range r.tokens {
		if rt.UserID == userID {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *FakeRefreshTokenRepo) DeleteIssuedBefore(cutoff time.Time) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	n := 0
	for k, rt := range r.tokens {
		if rt.IssuedAt.Before(cutoff) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}
