package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID         int64  `bun:"customer_id,pk,autoincrement"`
	Name       string `bun:"customer_name,notnull"`
	Address    string `bun:"address,notnull"`
	PostalCode string `bun:"postal_code,notnull"`
	Phone      string `bun:"phone,notnull"`
	DivisionID int64  `bun:"division_id,notnull"`
	Audit

	// Appointments is owned by the directory and never persisted with the row.
	Appointments []Appointment `bun:"-"`
}

// Clone returns a copy whose appointment list does not alias the receiver's.
func (c Customer) Clone() Customer {
	if c.Appointments != nil {
		appts := make([]Appointment, len(c.Appointments))
		copy(appts, c.Appointments)
		c.Appointments = appts
	}
	return c
}

func (c *Customer) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		c.Audit = c.Audit.utc()
	}
	return nil
}

// In returns a copy with audit timestamps and appointments expressed in loc.
func (c Customer) In(loc *time.Location) Customer {
	c = c.Clone()
	c.Audit = c.Audit.In(loc)
	for i := range c.Appointments {
		c.Appointments[i] = c.Appointments[i].In(loc)
	}
	return c
}

type Country struct {
	bun.BaseModel `bun:"table:countries"`

	ID   int64  `bun:"country_id,pk,autoincrement"`
	Name string `bun:"country,notnull"`
}

type Division struct {
	bun.BaseModel `bun:"table:first_level_divisions"`

	ID        int64  `bun:"division_id,pk,autoincrement"`
	Name      string `bun:"division,notnull"`
	CountryID int64  `bun:"country_id,notnull"`
}
