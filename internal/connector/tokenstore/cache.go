package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/redis/rueidis"
)

// DefaultCachePrefix namespaces token keys in a shared redis.
const DefaultCachePrefix = "qb_tokens"

// CacheStore keeps token sets in redis. The entry TTL is derived from the
// refresh token expiry, not the access token expiry: a cached entry may
// outlive access-token validity because refresh happens at read time. An
// unknown or already-past expiry stores with no TTL at all — an entry must
// never vanish before an explicit Forget.
type CacheStore struct {
	client rueidis.Client
	prefix string
}

// CacheOptions configures the redis connection for the cache store.
type CacheOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewCache(client rueidis.Client, prefix string) *CacheStore {
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return &CacheStore{client: client, prefix: prefix}
}

// NewCacheFromOptions dials redis and returns a cache store over it.
func NewCacheFromOptions(opts CacheOptions) (*CacheStore, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewCache(client, opts.Prefix), nil
}

func (s *CacheStore) Close() {
	s.client.Close()
}

func (s *CacheStore) key(qbCompanyID string) string {
	return s.prefix + ":" + qbCompanyID
}

func (s *CacheStore) Get(ctx context.Context, qbCompanyID string) (*domain.TokenSet, error) {
	cmd := s.client.B().Get().Key(s.key(qbCompanyID)).Build()
	raw, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tokens from redis: %w", err)
	}

	var t domain.TokenSet
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		// A malformed entry is treated as absent rather than fatal.
		return nil, nil
	}
	return &t, nil
}

func (s *CacheStore) Put(ctx context.Context, qbCompanyID string, tokens domain.TokenSet) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	key := s.key(qbCompanyID)
	ttl := cacheTTL(tokens, time.Now())

	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = s.client.B().Set().Key(key).Value(string(data)).ExSeconds(ttl).Build()
	} else {
		cmd = s.client.B().Set().Key(key).Value(string(data)).Build()
	}

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save tokens to redis: %w", err)
	}
	return nil
}

func (s *CacheStore) Forget(ctx context.Context, qbCompanyID string) error {
	cmd := s.client.B().Del().Key(s.key(qbCompanyID)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete tokens from redis: %w", err)
	}
	return nil
}

func (s *CacheStore) Has(ctx context.Context, qbCompanyID string) (bool, error) {
	cmd := s.client.B().Exists().Key(s.key(qbCompanyID)).Build()
	n, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check tokens in redis: %w", err)
	}
	return n > 0, nil
}

// cacheTTL returns the entry TTL in whole seconds, or 0 when the entry must
// not expire automatically (unknown or already-past refresh expiry).
func cacheTTL(tokens domain.TokenSet, now time.Time) int64 {
	if tokens.RefreshTokenExpiresAt == nil {
		return 0
	}
	secs := int64(tokens.RefreshTokenExpiresAt.Sub(now) / time.Second)
	if secs <= 0 {
		return 0
	}
	return secs
}
