package account

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// loginStateKey is the fixed session attribute under which the
// desensitized login state is stored.
const loginStateKey = "account_login_state"

// SessionStore is the server-side session storage the service depends on.
// Session identity and expiry policy are owned by the transport layer; the
// store only maps (sessionID, key) to a value. Implementations must be safe
// for concurrent use.
type SessionStore interface {
	Get(sessionID, key string) (any, bool)
	Set(sessionID, key string, value any)
	Remove(sessionID, key string)
}

var _ SessionStore = (*CacheSessionStore)(nil)

// CacheSessionStore keeps session attributes in an in-memory TTL cache.
// Entries expire ttl after their last write, which bounds how long an idle
// login state survives.
type CacheSessionStore struct {
	c *cache.Cache
}

// NewCacheSessionStore creates a session store whose entries live for ttl.
func NewCacheSessionStore(ttl time.Duration) *CacheSessionStore {
	return &CacheSessionStore{
		c: cache.New(ttl, 2*ttl),
	}
}

func sessionKey(sessionID, key string) string {
	return sessionID + "/" + key
}

func (s *CacheSessionStore) Get(sessionID, key string) (any, bool) {
	return s.c.Get(sessionKey(sessionID, key))
}

func (s *CacheSessionStore) Set(sessionID, key string, value any) {
	s.c.SetDefault(sessionKey(sessionID, key), value)
}

func (s *CacheSessionStore) Remove(sessionID, key string) {
	s.c.Delete(sessionKey(sessionID, key))
}
