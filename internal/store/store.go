package store

import (
	"context"

	"github.com/sbrito346/school-project/internal/domain"
)

// EntityStore is the authoritative CRUD boundary for one entity collection.
// Insert returns the generated id; Update and Delete return ErrNotFound when
// no row matches.
type EntityStore[E any] interface {
	LoadAll(ctx context.Context) ([]E, error)
	Insert(ctx context.Context, e E) (int64, error)
	Update(ctx context.Context, e E) error
	Delete(ctx context.Context, id int64) error
}

// Set groups the stores for every entity the scheduler persists.
type Set struct {
	Customers    EntityStore[domain.Customer]
	Appointments EntityStore[domain.Appointment]
	Contacts     EntityStore[domain.Contact]
	Users        EntityStore[domain.User]
	Divisions    EntityStore[domain.Division]
	Countries    EntityStore[domain.Country]
}

// Transactor runs fn against a Set bound to a single transaction. Any error
// returned by fn rolls back every write made through that Set.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Set) error) error
}
