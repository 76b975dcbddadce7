package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// rateLimiterSweepInterval は期限切れのウィンドウを掃除する間隔。
const rateLimiterSweepInterval = 5 * time.Minute

// RateDecision はレート制限の判定結果。
type RateDecision struct {
	// Allowed はリクエストを通すかどうか。
	Allowed bool
	// Count は現在のウィンドウでのリクエスト数。
	Count int
	// WindowEnd は現在のウィンドウが終わる時刻。
	WindowEnd time.Time
}

// RateLimiter は固定ウィンドウ方式のレート制限器。
type RateLimiter interface {
	// Allow はkeyのリクエストをwindowあたりlimit件まで許可する。
	Allow(ctx context.Context, key string, limit int, window time.Duration) RateDecision
	// Close はリソースを解放する。
	Close() error
}

// MemoryRateLimiter はプロセス内のマップで数えるRateLimiter。
// 複数インスタンス間では共有されない。
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]rateState
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

type rateState struct {
	count     int
	windowEnd time.Time
}

var _ RateLimiter = (*MemoryRateLimiter)(nil)

// NewMemoryRateLimiter はMemoryRateLimiterを生成し、掃除用のgoroutineを起動する。
func NewMemoryRateLimiter() *MemoryRateLimiter {
	rl := &MemoryRateLimiter{
		entries: make(map[string]rateState),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow はkeyのリクエストをwindowあたりlimit件まで許可する。limitが0以下なら常に許可する。
func (rl *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) RateDecision {
	if limit <= 0 {
		return RateDecision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.entries[key]
	if !ok || now.After(state.windowEnd) {
		state = rateState{count: 1, windowEnd: now.Add(window)}
		rl.entries[key] = state
		return RateDecision{Allowed: true, Count: state.count, WindowEnd: state.windowEnd}
	}
	if state.count >= limit {
		return RateDecision{Allowed: false, Count: state.count, WindowEnd: state.windowEnd}
	}
	state.count++
	rl.entries[key] = state
	return RateDecision{Allowed: true, Count: state.count, WindowEnd: state.windowEnd}
}

func (rl *MemoryRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rateLimiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(rl.now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, state := range rl.entries {
		if now.After(state.windowEnd) {
			delete(rl.entries, key)
		}
	}
}

// Close は掃除用のgoroutineを停止する。複数回呼んでもよい。
func (rl *MemoryRateLimiter) Close() error {
	rl.once.Do(func() {
		close(rl.stopCh)
	})
	return nil
}

// RedisRateLimiter はRedisのINCRとEXPIREで数えるRateLimiter。
// 複数インスタンスで同じ上限を共有できる。
type RedisRateLimiter struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

var _ RateLimiter = (*RedisRateLimiter)(nil)

// NewRedisRateLimiter はaddrのRedisに接続し、疎通を確認してからRedisRateLimiterを返す。
func NewRedisRateLimiter(ctx context.Context, addr, password string, db int) (*RedisRateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisRateLimiter{
		client:  client,
		prefix:  "kursus:ratelimit:",
		timeout: 250 * time.Millisecond,
	}, nil
}

// Allow はkeyのリクエストをwindowあたりlimit件まで許可する。
// Redisに到達できない場合はリクエストを通す。
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) RateDecision {
	if limit <= 0 {
		return RateDecision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	var (
		incr   *redis.IntCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		ttlCmd = pipe.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		log.Printf("[RateLimit] Redisのincrに失敗: %v", err)
		return RateDecision{Allowed: true}
	}
	counter := incr.Val()

	// 有効期限のないキー（初回、または以前のEXPIREが失敗したもの）にはここで期限を付ける
	ttl := ttlCmd.Val()
	if ttl < 0 {
		if err := rl.client.Expire(ctx, redisKey, window).Err(); err != nil {
			log.Printf("[RateLimit] Redisのexpireに失敗: %v", err)
		}
		ttl = window
	}
	return RateDecision{
		Allowed:   int(counter) <= limit,
		Count:     int(counter),
		WindowEnd: time.Now().Add(ttl),
	}
}

// Close はRedisとの接続を閉じる。
func (rl *RedisRateLimiter) Close() error {
	return rl.client.Close()
}

// RateLimit は呼び出し元ごとにwindowあたりlimit件までに制限するGinミドルウェアを返す。
// キーは認証済みならメールアドレス、そうでなければクライアントIPを使う。
// 上限を超えた場合は429を返す。metricsはnilでもよい。
func RateLimit(rl RateLimiter, limit int, window time.Duration, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || limit <= 0 {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if p, ok := GetPrincipal(c); ok && p.Email != "" {
			key = "user:" + p.Email
		}

		decision := rl.Allow(c.Request.Context(), key, limit, window)
		remaining := max(limit-decision.Count, 0)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !decision.WindowEnd.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.WindowEnd.Unix(), 10))
		}

		if !decision.Allowed {
			metrics.recordRateLimitHit(c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Terlalu banyak permintaan, coba lagi nanti",
			})
			return
		}
		c.Next()
	}
}
