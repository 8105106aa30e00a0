package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStore reads from the primary store and switches to the fallback
// while the primary is failing. Writes go to both so the fallback holds
// every live session. The primary is probed again once recoveryInterval
// has passed.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{primary: primary, fallback: fallback, logger: logger}
}

func (f *FailoverStore) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) >= recoveryInterval {
		f.lastCheck = time.Now()
		return true
	}
	return false
}

func (f *FailoverStore) markDown(err error) {
	if !f.isDown.Swap(true) {
		f.logger.Warn().Err(err).Msg("session store primary failed, switching to fallback")
	}
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
}

func (f *FailoverStore) markUp() {
	if f.isDown.Swap(false) {
		f.logger.Info().Msg("session store primary recovered")
	}
}

func (f *FailoverStore) Get(ctx context.Context, chatID int64) (*Session, error) {
	if f.usePrimary() {
		s, err := f.primary.Get(ctx, chatID)
		if err == nil {
			f.markUp()
			return s, nil
		}
		f.markDown(err)
	}
	return f.fallback.Get(ctx, chatID)
}

func (f *FailoverStore) Save(ctx context.Context, s *Session) error {
	fbErr := f.fallback.Save(ctx, s)
	if f.usePrimary() {
		err := f.primary.Save(ctx, s)
		if err == nil {
			f.markUp()
			return nil
		}
		f.markDown(err)
	}
	return fbErr
}

func (f *FailoverStore) Delete(ctx context.Context, chatID int64) error {
	fbErr := f.fallback.Delete(ctx, chatID)
	if f.usePrimary() {
		if err := f.primary.Delete(ctx, chatID); err != nil {
			f.markDown(err)
			return fbErr
		}
		f.markUp()
		return nil
	}
	return fbErr
}
