// Package session owns the logged-in user context that is threaded through
// every directory mutation, along with login and its signed tokens.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sbrito346/school-project/internal/domain"
)

type Session struct {
	ID   uuid.UUID
	User domain.User
	// Location is the zone the user enters and reads wall-clock times in.
	Location *time.Location
	LoginAt  time.Time
}

func New(user domain.User, loc *time.Location, now time.Time) *Session {
	if loc == nil {
		loc = time.Local
	}
	user.PasswordHash = ""
	return &Session{
		ID:       uuid.New(),
		User:     user,
		Location: loc,
		LoginAt:  now.In(loc),
	}
}

// Actor is the name written into audit fields for changes made in this session.
func (s *Session) Actor() string {
	return s.User.Name
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
