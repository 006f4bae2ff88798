package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/store"
)

type fakeStore[E any] struct {
	rows  []E
	id    func(E) int64
	setID func(*E, int64)
	next  int64

	inserts, updates, deletes int

	insertErr error
	updateErr error
	deleteErr error
	// deleteErrAt fails the nth Delete call (1-based) when non-zero.
	deleteErrAt int
}

func newFakeStore[E any](id func(E) int64, setID func(*E, int64)) *fakeStore[E] {
	return &fakeStore[E]{id: id, setID: setID}
}

func (f *fakeStore[E]) calls() int { return f.inserts + f.updates + f.deletes }

func (f *fakeStore[E]) LoadAll(ctx context.Context) ([]E, error) {
	return append([]E(nil), f.rows...), nil
}

func (f *fakeStore[E]) Insert(ctx context.Context, e E) (int64, error) {
	f.inserts++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.next++
	f.setID(&e, f.next)
	f.rows = append(f.rows, e)
	return f.next, nil
}

func (f *fakeStore[E]) Update(ctx context.Context, e E) error {
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.rows {
		if f.id(f.rows[i]) == f.id(e) {
			f.rows[i] = e
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore[E]) Delete(ctx context.Context, id int64) error {
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if f.deleteErrAt != 0 && f.deletes == f.deleteErrAt {
		return fmt.Errorf("injected delete failure: %w", store.ErrUnavailable)
	}
	for i := range f.rows {
		if f.id(f.rows[i]) == id {
			f.rows = append(f.rows[:i:i], f.rows[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// seed appends a row with a fixed id, bypassing call counting.
func (f *fakeStore[E]) seed(e E) {
	f.rows = append(f.rows, e)
	if id := f.id(e); id > f.next {
		f.next = id
	}
}

type fakeStores struct {
	customers    *fakeStore[domain.Customer]
	appointments *fakeStore[domain.Appointment]
	contacts     *fakeStore[domain.Contact]
	users        *fakeStore[domain.User]
	divisions    *fakeStore[domain.Division]
	countries    *fakeStore[domain.Country]
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		customers: newFakeStore(
			func(c domain.Customer) int64 { return c.ID },
			func(c *domain.Customer, id int64) { c.ID = id },
		),
		appointments: newFakeStore(
			func(a domain.Appointment) int64 { return a.ID },
			func(a *domain.Appointment, id int64) { a.ID = id },
		),
		contacts: newFakeStore(
			func(c domain.Contact) int64 { return c.ID },
			func(c *domain.Contact, id int64) { c.ID = id },
		),
		users: newFakeStore(
			func(u domain.User) int64 { return u.ID },
			func(u *domain.User, id int64) { u.ID = id },
		),
		divisions: newFakeStore(
			func(v domain.Division) int64 { return v.ID },
			func(v *domain.Division, id int64) { v.ID = id },
		),
		countries: newFakeStore(
			func(c domain.Country) int64 { return c.ID },
			func(c *domain.Country, id int64) { c.ID = id },
		),
	}
}

func (s *fakeStores) set() store.Set {
	return store.Set{
		Customers:    s.customers,
		Appointments: s.appointments,
		Contacts:     s.contacts,
		Users:        s.users,
		Divisions:    s.divisions,
		Countries:    s.countries,
	}
}

// InTx snapshots the customer and appointment rows and restores them when fn fails.
func (s *fakeStores) InTx(ctx context.Context, fn func(ctx context.Context, set store.Set) error) error {
	customers := append([]domain.Customer(nil), s.customers.rows...)
	appts := append([]domain.Appointment(nil), s.appointments.rows...)
	if err := fn(ctx, s.set()); err != nil {
		s.customers.rows = customers
		s.appointments.rows = appts
		return err
	}
	return nil
}

func (s *fakeStores) totalCalls() int {
	return s.customers.calls() + s.appointments.calls() + s.contacts.calls() +
		s.users.calls() + s.divisions.calls() + s.countries.calls()
}

var errInjected = errors.New("injected")
