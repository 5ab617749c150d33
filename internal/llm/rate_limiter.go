package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corpintel/edgargraph/internal/errors"
)

// RateLimiter tracks global request and token counters in Redis so that
// several pipeline processes sharing one API key throttle before the
// provider does.
type RateLimiter struct {
	redis    *redis.Client
	rpmLimit int64
	tpmLimit int64
	rpdLimit int64
}

const (
	DefaultRPM = 1000
	DefaultTPM = 1_000_000
	DefaultRPD = 10_000
)

// NewRateLimiter connects to Redis and verifies the connection.
func NewRateLimiter(redisAddr string) (*RateLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, fmt.Sprintf("connect to redis at %s", redisAddr))
	}

	return &RateLimiter{
		redis:    client,
		rpmLimit: DefaultRPM,
		tpmLimit: DefaultTPM,
		rpdLimit: DefaultRPD,
	}, nil
}

// checkScript atomically increments the minute, token, and day counters
// and reports when any of them crosses its threshold. Minute keys get a
// 70 second TTL to absorb clock skew.
var checkScript = redis.NewScript(`
	local rpm_key = KEYS[1]
	local tpm_key = KEYS[2]
	local rpd_key = KEYS[3]
	local rpm_limit = tonumber(ARGV[1])
	local tpm_limit = tonumber(ARGV[2])
	local rpd_limit = tonumber(ARGV[3])
	local tokens = tonumber(ARGV[4])

	local rpm = redis.call('INCR', rpm_key)
	local tpm = redis.call('INCRBY', tpm_key, tokens)
	local rpd = redis.call('INCR', rpd_key)

	if rpm == 1 then redis.call('EXPIRE', rpm_key, 70) end
	if tpm == tokens then redis.call('EXPIRE', tpm_key, 70) end
	if rpd == 1 then redis.call('EXPIRE', rpd_key, 86400) end

	if rpm >= rpm_limit * 0.9 then
		return {-1, 'RPM', rpm, rpm_limit}
	end
	if tpm >= tpm_limit * 0.9 then
		return {-2, 'TPM', tpm, tpm_limit}
	end
	if rpd >= rpd_limit then
		return {-3, 'RPD', rpd, rpd_limit}
	end

	return {0, 'OK', rpm, tpm, rpd}
`)

// CheckAndIncrement reserves capacity for one request of roughly
// estimatedTokens tokens. Returns a transient error when the caller
// should back off; the counters have already been charged.
func (r *RateLimiter) CheckAndIncrement(ctx context.Context, estimatedTokens int64) error {
	now := time.Now()
	minuteKey := fmt.Sprintf("llm:rpm:%s", now.Format("2006-01-02T15:04"))
	tpmKey := fmt.Sprintf("llm:tpm:%s", now.Format("2006-01-02T15:04"))
	dayKey := fmt.Sprintf("llm:rpd:%s", now.Format("2006-01-02"))

	result, err := checkScript.Run(ctx, r.redis,
		[]string{minuteKey, tpmKey, dayKey},
		r.rpmLimit, r.tpmLimit, r.rpdLimit, estimatedTokens).Result()
	if err != nil {
		return errors.Wrap(err, errors.CategoryTransient, "rate limiter redis operation failed")
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return errors.Internalf("invalid rate limiter response format")
	}

	code, _ := values[0].(int64)
	if code < 0 {
		limitName, _ := values[1].(string)
		return errors.Transientf(nil, "llm rate limit approaching: %s threshold reached", limitName)
	}
	return nil
}

// Close releases the Redis connection.
func (r *RateLimiter) Close() error {
	return r.redis.Close()
}
