package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts a request in a window and reports either the
// remaining capacity or the milliseconds until the window resets.
//
// KEYS[1] = window key
// ARGV[1] = window length in milliseconds
// ARGV[2] = limit.
var fixedWindowScript = redis.NewScript(`
	local current = redis.call('GET', KEYS[1])
	if current == false then
		redis.call('SET', KEYS[1], 1, 'PX', ARGV[1])
		return {1, tonumber(ARGV[2]) - 1}
	end
	if tonumber(current) < tonumber(ARGV[2]) then
		local n = redis.call('INCR', KEYS[1])
		if redis.call('PTTL', KEYS[1]) == -1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return {1, tonumber(ARGV[2]) - n}
	end
	return {0, redis.call('PTTL', KEYS[1])}
`)

var errUnexpectedReply = errors.New("unexpected rate limit script reply")

// RedisCounter is a WindowCounter backed by a Redis Lua script.
type RedisCounter struct {
	client redis.Scripter
}

// NewRedisCounter wraps client.
func NewRedisCounter(client redis.Scripter) *RedisCounter {
	return &RedisCounter{client: client}
}

// Allow implements WindowCounter.
func (c *RedisCounter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	res, err := fixedWindowScript.Run(ctx, c.client, []string{key}, window.Milliseconds(), limit).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, errUnexpectedReply
	}
	if res[0] == 1 {
		return true, 0, nil
	}
	retry := time.Duration(res[1]) * time.Millisecond
	if retry <= 0 {
		retry = window
	}
	return false, retry, nil
}
