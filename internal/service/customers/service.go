package customers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/session"
	"github.com/sbrito346/school-project/internal/store"
)

type Reason string

const (
	ReasonMissingFields   Reason = "MissingFields"
	ReasonUnknownDivision Reason = "UnknownDivision"
)

type ValidationError struct {
	Reason Reason
	msg    string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(reason Reason, msg string) error {
	return &ValidationError{Reason: reason, msg: msg}
}

type Mode int

const (
	Create Mode = iota
	Edit
)

// Draft is a customer record as entered by a user. The division is given
// either by id or by name within a country.
type Draft struct {
	ID         int64
	Name       string
	Address    string
	PostalCode string
	Phone      string
	DivisionID int64
	Division   string
	Country    string
}

type Directory interface {
	Customer(id int64) (domain.Customer, bool)
	Division(id int64) (domain.Division, bool)
	DivisionByName(name, country string) (domain.Division, bool)
	AddCustomer(ctx context.Context, actor string, c domain.Customer) (domain.Customer, error)
	EditCustomer(ctx context.Context, actor string, c domain.Customer) (domain.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
}

type Service struct {
	dir Directory
	log *slog.Logger
}

func NewService(dir Directory, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{dir: dir, log: log.With(slog.String("component", "customers"))}
}

func (s *Service) Submit(ctx context.Context, sess *session.Session, d Draft, mode Mode) (domain.Customer, error) {
	if sess == nil {
		return domain.Customer{}, errors.New("session is required")
	}
	switch mode {
	case Create:
		d.ID = 0
	case Edit:
		if d.ID == 0 {
			return domain.Customer{}, validationError(ReasonMissingFields, "missing required fields: customer_id")
		}
		if _, ok := s.dir.Customer(d.ID); !ok {
			return domain.Customer{}, fmt.Errorf("customer %d: %w", d.ID, store.ErrNotFound)
		}
	default:
		return domain.Customer{}, fmt.Errorf("unknown submit mode %d", mode)
	}

	c, err := s.prepare(d)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			s.log.Info("customer rejected", slog.String("reason", string(vErr.Reason)), slog.Int64("customer_id", d.ID), slog.String("actor", sess.Actor()))
		}
		return domain.Customer{}, err
	}

	var out domain.Customer
	if mode == Create {
		out, err = s.dir.AddCustomer(ctx, sess.Actor(), c)
	} else {
		out, err = s.dir.EditCustomer(ctx, sess.Actor(), c)
	}
	if err != nil {
		return domain.Customer{}, err
	}
	return out.In(sess.Location), nil
}

// Delete removes the customer together with all of its appointments.
func (s *Service) Delete(ctx context.Context, sess *session.Session, id int64) error {
	if sess == nil {
		return errors.New("session is required")
	}
	if id == 0 {
		return validationError(ReasonMissingFields, "missing required fields: customer_id")
	}
	if err := s.dir.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.log.Info("customer deleted", slog.Int64("customer_id", id), slog.String("actor", sess.Actor()))
	return nil
}

func (s *Service) prepare(d Draft) (domain.Customer, error) {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"name", d.Name},
		{"address", d.Address},
		{"postal_code", d.PostalCode},
		{"phone", d.Phone},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if d.DivisionID == 0 && strings.TrimSpace(d.Division) == "" {
		missing = append(missing, "division")
	}
	if len(missing) > 0 {
		return domain.Customer{}, validationError(ReasonMissingFields, "missing required fields: "+strings.Join(missing, ", "))
	}

	var (
		div domain.Division
		ok  bool
	)
	if d.DivisionID != 0 {
		div, ok = s.dir.Division(d.DivisionID)
	} else {
		div, ok = s.dir.DivisionByName(strings.TrimSpace(d.Division), strings.TrimSpace(d.Country))
	}
	if !ok {
		return domain.Customer{}, validationError(ReasonUnknownDivision, "division does not exist")
	}

	return domain.Customer{
		ID:         d.ID,
		Name:       strings.TrimSpace(d.Name),
		Address:    strings.TrimSpace(d.Address),
		PostalCode: strings.TrimSpace(d.PostalCode),
		Phone:      strings.TrimSpace(d.Phone),
		DivisionID: div.ID,
	}, nil
}
