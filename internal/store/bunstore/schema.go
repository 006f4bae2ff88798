package bunstore

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/sbrito346/school-project/internal/domain"
)

type tableSpec struct {
	model       any
	foreignKeys []string
}

// tables is ordered so every referenced table is created before its referrers.
var tables = []tableSpec{
	{model: (*domain.Country)(nil)},
	{
		model:       (*domain.Division)(nil),
		foreignKeys: []string{`("country_id") REFERENCES "countries" ("country_id")`},
	},
	{model: (*domain.User)(nil)},
	{model: (*domain.Contact)(nil)},
	{
		model:       (*domain.Customer)(nil),
		foreignKeys: []string{`("division_id") REFERENCES "first_level_divisions" ("division_id")`},
	},
	{
		model: (*domain.Appointment)(nil),
		foreignKeys: []string{
			`("customer_id") REFERENCES "customers" ("customer_id")`,
			`("user_id") REFERENCES "users" ("user_id")`,
			`("contact_id") REFERENCES "contacts" ("contact_id")`,
		},
	},
}

// CreateSchema creates every scheduler table that does not exist yet.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
