package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sbrito346/school-project/internal/directory"
	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/session"
	"github.com/sbrito346/school-project/internal/store"
)

type Mode int

const (
	Create Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "create"
}

// Directory is the cache the service commits through.
type Directory interface {
	References
	Appointment(id int64) (domain.Appointment, bool)
	AddAppointment(ctx context.Context, actor string, a domain.Appointment, check directory.Precondition) (domain.Appointment, error)
	EditAppointment(ctx context.Context, actor string, a domain.Appointment, check directory.Precondition) (domain.Appointment, error)
	RemoveAppointment(ctx context.Context, id int64) (domain.Appointment, error)
}

type Service struct {
	dir   Directory
	hours domain.BusinessHours
	log   *slog.Logger
}

func NewService(dir Directory, hours domain.BusinessHours, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{dir: dir, hours: hours, log: log.With(slog.String("component", "appointments"))}
}

// Submit validates d and commits it through the directory. A *ValidationError
// means the draft was rejected and nothing was written. The committed record
// is returned in the session's zone.
func (s *Service) Submit(ctx context.Context, sess *session.Session, d Draft, mode Mode) (domain.Appointment, error) {
	if sess == nil {
		return domain.Appointment{}, errors.New("session is required")
	}
	switch mode {
	case Create:
		d.ID = 0
	case Edit:
		if d.ID == 0 {
			return domain.Appointment{}, s.reject(sess, d, mode, validationError(ReasonMissingFields, "missing required fields: appointment_id"))
		}
		if _, ok := s.dir.Appointment(d.ID); !ok {
			return domain.Appointment{}, fmt.Errorf("appointment %d: %w", d.ID, store.ErrNotFound)
		}
	default:
		return domain.Appointment{}, fmt.Errorf("unknown submit mode %d", mode)
	}

	v := Validator{Hours: s.hours, Zone: sess.Location}
	cand, err := v.Prepare(d, s.dir)
	if err != nil {
		return domain.Appointment{}, s.reject(sess, d, mode, err)
	}

	// The overlap check runs under the directory's writer lock so no
	// concurrent commit can slip in between validation and the store write.
	check := func(existing []domain.Appointment) error {
		return CheckOverlap(cand, existing)
	}

	var committed domain.Appointment
	if mode == Create {
		committed, err = s.dir.AddAppointment(ctx, sess.Actor(), cand, check)
	} else {
		committed, err = s.dir.EditAppointment(ctx, sess.Actor(), cand, check)
	}
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return domain.Appointment{}, s.reject(sess, d, mode, err)
		}
		return domain.Appointment{}, err
	}
	return committed.In(sess.Location), nil
}

// Delete removes the appointment with the given id.
func (s *Service) Delete(ctx context.Context, sess *session.Session, id int64) (domain.Appointment, error) {
	if sess == nil {
		return domain.Appointment{}, errors.New("session is required")
	}
	if id == 0 {
		return domain.Appointment{}, validationError(ReasonMissingFields, "missing required fields: appointment_id")
	}
	removed, err := s.dir.RemoveAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	s.log.Info("appointment deleted", slog.Int64("appointment_id", id), slog.String("actor", sess.Actor()))
	return removed.In(sess.Location), nil
}

func (s *Service) reject(sess *session.Session, d Draft, mode Mode, err error) error {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		s.log.Info("appointment rejected",
			slog.String("mode", mode.String()),
			slog.String("reason", string(vErr.Reason)),
			slog.Int64("appointment_id", d.ID),
			slog.Int64("customer_id", d.CustomerID),
			slog.String("actor", sess.Actor()),
		)
	}
	return err
}
