package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Audit is the creation/update provenance carried by every mutable record.
type Audit struct {
	CreatedAt time.Time `bun:"create_date,notnull"`
	CreatedBy string    `bun:"created_by,notnull"`
	UpdatedAt time.Time `bun:"last_update,notnull"`
	UpdatedBy string    `bun:"last_updated_by,notnull"`
}

// StampCreated sets all four audit fields to the acting user at now.
func (a *Audit) StampCreated(now time.Time, by string) {
	a.CreatedAt = now
	a.CreatedBy = by
	a.UpdatedAt = now
	a.UpdatedBy = by
}

// StampUpdated keeps the creation pair and moves the update pair forward.
func (a *Audit) StampUpdated(now time.Time, by string) {
	a.UpdatedAt = now
	a.UpdatedBy = by
}

func (a Audit) utc() Audit {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a
}

// In returns a copy with both timestamps expressed in loc.
func (a Audit) In(loc *time.Location) Audit {
	a.CreatedAt = a.CreatedAt.In(loc)
	a.UpdatedAt = a.UpdatedAt.In(loc)
	return a
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID          int64     `bun:"appointment_id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull"`
	Location    string    `bun:"location,notnull"`
	Type        string    `bun:"type,notnull"`
	Start       time.Time `bun:"start,notnull"`
	End         time.Time `bun:"end,notnull"`
	CustomerID  int64     `bun:"customer_id,notnull"`
	UserID      int64     `bun:"user_id,notnull"`
	ContactID   int64     `bun:"contact_id,notnull"`
	Audit
}

// Range is the appointment's half-open [Start, End) interval.
func (a Appointment) Range() TimeRange {
	return TimeRange{Start: a.Start, End: a.End}
}

// In returns a copy with every timestamp expressed in loc. The instants are unchanged.
func (a Appointment) In(loc *time.Location) Appointment {
	a.Start = a.Start.In(loc)
	a.End = a.End.In(loc)
	a.Audit = a.Audit.In(loc)
	return a
}

// Equal reports field-for-field equality, comparing timestamps as instants.
func (a Appointment) Equal(b Appointment) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Location == b.Location &&
		a.Type == b.Type &&
		a.Start.Equal(b.Start) &&
		a.End.Equal(b.End) &&
		a.CustomerID == b.CustomerID &&
		a.UserID == b.UserID &&
		a.ContactID == b.ContactID &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		a.CreatedBy == b.CreatedBy &&
		a.UpdatedAt.Equal(b.UpdatedAt) &&
		a.UpdatedBy == b.UpdatedBy
}

// BeforeAppendModel persists every timestamp normalized to UTC.
func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		a.Start = a.Start.UTC()
		a.End = a.End.UTC()
		a.Audit = a.Audit.utc()
	}
	return nil
}
