package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
)

// RateLimiter хранит по лимитеру на клиента. Неиспользуемые лимитеры вытесняются.
type RateLimiter struct {
	limiters *gocache.Cache
	rate     rate.Limit
	burst    int
}

// NewRateLimiter создаёт лимитер на rps запросов в секунду с запасом burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: gocache.New(10*time.Minute, time.Minute),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// Allow сообщает, можно ли обслужить очередной запрос клиента key.
func (rl *RateLimiter) Allow(key string) bool {
	if l, ok := rl.limiters.Get(key); ok {
		rl.limiters.SetDefault(key, l)
		return l.(*rate.Limiter).Allow()
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	if err := rl.limiters.Add(key, l, gocache.DefaultExpiration); err != nil {
		existing, ok := rl.limiters.Get(key)
		if ok {
			l = existing.(*rate.Limiter)
		}
	}
	return l.Allow()
}

// RateLimitMiddleware ограничивает частоту запросов. Ключ клиента - идентификатор
// пользователя из контекста, если он есть, иначе IP-адрес.
func RateLimitMiddleware(log *slog.Logger, rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !rl.Allow(key) {
				log.Warn("too many requests", slog.String("client", key))
				response.Fail(w, r, http.StatusTooManyRequests, response.MsgTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if id, ok := UserIDFrom(r.Context()); ok {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
