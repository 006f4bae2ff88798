package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sbrito346/school-project/internal/domain"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Users resolves accounts by name.
type Users interface {
	UserByName(name string) (domain.User, bool)
}

type Authenticator struct {
	users    Users
	loc      *time.Location
	activity *slog.Logger
	now      func() time.Time
}

// NewAuthenticator returns an Authenticator that opens sessions in loc and
// records every attempt on activity. A nil activity logger discards the trail.
func NewAuthenticator(users Users, loc *time.Location, activity *slog.Logger) *Authenticator {
	if activity == nil {
		activity = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if loc == nil {
		loc = time.Local
	}
	return &Authenticator{users: users, loc: loc, activity: activity, now: time.Now}
}

func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		a.record(ctx, username, false, "missing credentials")
		return nil, ErrMissingCredentials
	}

	u, ok := a.users.UserByName(username)
	if !ok {
		a.record(ctx, username, false, "unknown user")
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(u.PasswordHash, password) {
		a.record(ctx, username, false, "wrong password")
		return nil, ErrInvalidCredentials
	}

	a.record(ctx, username, true, "")
	return New(u, a.loc, a.now()), nil
}

func (a *Authenticator) record(ctx context.Context, username string, success bool, reason string) {
	attrs := []slog.Attr{
		slog.String("user", username),
		slog.Bool("success", success),
		slog.String("at", a.now().In(a.loc).Format("2006-01-02 15:04:05 MST")),
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
	}
	a.activity.LogAttrs(ctx, slog.LevelInfo, "login attempt", attrs...)
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// OpenActivityLog appends the login trail to the file at path.
func OpenActivityLog(path string) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewTextHandler(f, nil)), f, nil
}
