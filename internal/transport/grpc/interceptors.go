package grpc

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/session"
)

// RequestTimeout bounds every call that arrives without a deadline.
func RequestTimeout(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// LoginLimiter keeps one token bucket per peer address for the login method.
type LoginLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	burst   int
	now     func() time.Time
}

func NewLoginLimiter(rps float64, burst int) *LoginLimiter {
	return &LoginLimiter{
		clients: make(map[string]*client),
		r:       rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

func (rl *LoginLimiter) get(addr string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if c, ok := rl.clients[addr]; ok {
		c.seen = now
		return c.lim
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.clients[addr] = &client{lim: l, seen: now}
	return l
}

// Sweep drops peers idle for longer than maxIdle until ctx is done.
func (rl *LoginLimiter) Sweep(ctx context.Context, every, maxIdle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.mu.Lock()
			for addr, c := range rl.clients {
				if rl.now().Sub(c.seen) > maxIdle {
					delete(rl.clients, addr)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *LoginLimiter) Interceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if info.FullMethod != LoginMethod {
			return next(ctx, req)
		}
		addr := "unknown"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			addr = p.Addr.String()
			if i := strings.LastIndex(addr, ":"); i > 0 {
				addr = addr[:i]
			}
		}
		if !rl.get(addr).Allow() {
			return nil, status.Error(codes.ResourceExhausted, "too many login attempts")
		}
		return next(ctx, req)
	}
}

type TokenParser interface {
	Parse(raw string) (*session.Session, error)
}

type userLookup interface {
	User(id int64) (domain.User, bool)
}

// Auth requires a bearer token on every method but Login and places the
// session it names in the request context.
func Auth(tokens TokenParser, users userLookup, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "grpc.auth"))

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if info.FullMethod == LoginMethod {
			return next(ctx, req)
		}
		raw := bearerToken(ctx)
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		sess, err := tokens.Parse(raw)
		if err != nil {
			log.Info("token rejected", slog.String("method", info.FullMethod), slog.Any("err", err))
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		u, ok := users.User(sess.User.ID)
		if !ok || u.Name != sess.User.Name {
			log.Warn("token for unknown user", slog.Int64("user_id", sess.User.ID))
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return next(session.NewContext(ctx, sess), req)
	}
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	v := strings.TrimSpace(values[0])
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}
