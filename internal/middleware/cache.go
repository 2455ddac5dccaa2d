package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/seminars/internal/config"
)

// cachedResponse is what the cache stores per key.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// bodyRecorder tees the response body into a buffer up to limit bytes.
// Bodies over the limit are marked as overflowed and not cached.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *bodyRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

const cacheUntilKey = "cache_until"

// CacheUntil caps the lifetime of the response being built at t.  Handlers
// whose output depends on the clock call it with the next moment that
// output changes.  The earliest call wins.
func CacheUntil(c echo.Context, t time.Time) {
	if cur, ok := c.Get(cacheUntilKey).(time.Time); ok && !t.Before(cur) {
		return
	}
	c.Set(cacheUntilKey, t)
}

// cacheTTL returns ttl shortened to the handler's CacheUntil bound.
func cacheTTL(c echo.Context, ttl time.Duration, now time.Time) time.Duration {
	if until, ok := c.Get(cacheUntilKey).(time.Time); ok {
		if d := until.Sub(now); d < ttl {
			return d
		}
	}
	return ttl
}

// cacheKey hashes the parts selected by the key strategy under the prefix.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{c.Path(), c.Request().URL.Path}
	case "method_route":
		parts = []string{r.Method, c.Path(), r.URL.Path}
	case "method_route_query":
		parts = []string{r.Method, c.Path(), r.URL.Path, r.URL.RawQuery}
	default:
		parts = []string{c.Path(), r.URL.Path, r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache serves cached 200 responses for the configured methods.
// Requests carrying an Authorization header are never cached since their
// responses may depend on the caller.  Entries live for cfg.TTL or until
// the bound set with CacheUntil, whichever comes first.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[req.Method] || req.Header.Get(echo.HeaderAuthorization) != "" {
				return next(c)
			}
			ctx := req.Context()
			key := cacheKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cr cachedResponse
				if json.Unmarshal(raw, &cr) == nil {
					h := c.Response().Header()
					for k, vals := range cr.Header {
						if k == echo.HeaderContentLength {
							continue
						}
						h[k] = vals
					}
					h.Set("X-Cache", "HIT")
					return c.Blob(cr.Status, h.Get(echo.HeaderContentType), cr.Body)
				}
			} else if err != redis.Nil {
				log.Warn().Err(err).Msg("cache lookup failed")
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			ttl := cacheTTL(c, cfg.TTL, time.Now())
			if rec.status != http.StatusOK || rec.overflow || ttl <= 0 {
				return nil
			}
			payload, err := json.Marshal(cachedResponse{
				Status: rec.status,
				Header: c.Response().Header().Clone(),
				Body:   rec.buf.Bytes(),
			})
			if err == nil {
				err = rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err()
			}
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache store failed")
			}
			return nil
		}
	}
}

// Invalidate drops every cached response under prefix.  Handlers call it
// after writes that change listings or vacancies.
func Invalidate(ctx context.Context, rdb *redis.Client, prefix string) {
	if rdb == nil {
		return
	}
	iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Msg("cache scan failed")
		return
	}
	if len(keys) > 0 {
		if err := rdb.Del(ctx, keys...).Err(); err != nil {
			log.Warn().Err(err).Msg("cache invalidation failed")
		}
	}
}
