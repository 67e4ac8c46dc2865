package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/ports"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	KeyPrefix  = "saferoute:score:"
	DefaultTTL = 30 * time.Minute
)

// CachedScorer memoizes assessments in Redis keyed by polyline hash.
// Redis failures are logged and fall through to the wrapped scorer.
type CachedScorer struct {
	next ports.SafetyScorer
	rc   *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedScorer(next ports.SafetyScorer, rc *redis.Client, ttl time.Duration, log *zap.Logger) *CachedScorer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.L()
	}
	return &CachedScorer{next: next, rc: rc, ttl: ttl, log: log}
}

// OpenRedis returns nil when addr is empty.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// CacheKey hashes the polyline at micro-degree precision.
func CacheKey(polyline []domain.Coordinate) string {
	h := sha256.New()
	buf := make([]byte, 0, 32)
	for _, c := range polyline {
		buf = strconv.AppendFloat(buf[:0], c.Lat, 'f', 6, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, c.Lng, 'f', 6, 64)
		buf = append(buf, ';')
		h.Write(buf)
	}
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (s *CachedScorer) Assess(ctx context.Context, polyline []domain.Coordinate) (domain.SafetyAssessment, error) {
	if s.rc == nil {
		return s.next.Assess(ctx, polyline)
	}

	key := CacheKey(polyline)
	raw, err := s.rc.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached domain.SafetyAssessment
		if jerr := json.Unmarshal([]byte(raw), &cached); jerr == nil {
			return cached, nil
		}
		s.log.Warn("score cache entry corrupt", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		s.log.Warn("score cache read failed", zap.String("key", key), zap.Error(err))
	}

	a, err := s.next.Assess(ctx, polyline)
	if err != nil {
		return domain.SafetyAssessment{}, err
	}

	b, err := json.Marshal(a)
	if err != nil {
		return a, nil
	}
	if err := s.rc.Set(ctx, key, b, s.ttl).Err(); err != nil {
		s.log.Warn("score cache write failed", zap.String("key", key), zap.Error(err))
	}
	return a, nil
}
