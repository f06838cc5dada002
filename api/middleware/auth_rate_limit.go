package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/contactbook-backend/api/responses"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
)

const maxAuthBodyBytes = 1 << 20

// RateLimitStore counts attempts in fixed windows; *redis.Client implements it.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one credential endpoint by client address and
// by the email found in the request body.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// attemptBucket is one counter consulted for a request. subject is what gets
// logged, never the raw email.
type attemptBucket struct {
	kind    string
	subject string
	limit   int
}

func (p AuthRateLimitPolicy) scope(b attemptBucket) string {
	return b.kind + ":" + p.name + ":" + b.subject
}

// AuthRateLimit guards register and login. A store failure answers 503 rather
// than letting unthrottled traffic through.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			buckets, err := policy.buckets(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
				return
			}

			for _, b := range buckets {
				allowed, attempts, err := store.FixedWindowAllow(ctx, policy.scope(b), int64(b.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					policy.reject(ctx, logg, w, b, attempts)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// buckets lists the counters for r. Reading the email consumes the body, so
// it is replaced with a fresh reader for the next handler.
func (p AuthRateLimitPolicy) buckets(r *http.Request) ([]attemptBucket, error) {
	var out []attemptBucket
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			out = append(out, attemptBucket{kind: "ip", subject: ip, limit: p.ipLimit})
		}
	}
	if p.emailLimit <= 0 || r.Body == nil {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBodyBytes))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if email := emailFromBody(body); email != "" {
		out = append(out, attemptBucket{kind: "email", subject: hashValue(email), limit: p.emailLimit})
	}
	return out, nil
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, b attemptBucket, attempts int64) {
	if logg != nil {
		subjectKey := "ip"
		if b.kind == "email" {
			subjectKey = "email_hash"
		}
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"scope":          b.kind,
			"policy":         p.name,
			subjectKey:       b.subject,
			"attempts":       attempts,
			"limit":          b.limit,
			"window_seconds": int(p.window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP trusts the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
