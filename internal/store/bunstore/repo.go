// Package bunstore implements the store contracts on top of bun so the same
// code serves every SQL dialect the scheduler can run against.
package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/store"
)

// ErrorMapper translates driver errors onto the store sentinels. It must
// return err unchanged when it has nothing better to say.
type ErrorMapper func(err error) error

func passThrough(err error) error { return err }

// Repo is a store.EntityStore for one bun model keyed by an integer column.
type Repo[E any] struct {
	db     bun.IDB
	pk     string
	mapErr ErrorMapper
}

func NewRepo[E any](db bun.IDB, pk string, mapErr ErrorMapper) *Repo[E] {
	if mapErr == nil {
		mapErr = passThrough
	}
	return &Repo[E]{db: db, pk: pk, mapErr: mapErr}
}

func (r *Repo[E]) LoadAll(ctx context.Context) ([]E, error) {
	var rows []E
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("? ASC", bun.Ident(r.pk)).
		Scan(ctx)
	if err != nil {
		return nil, r.mapErr(err)
	}
	return rows, nil
}

func (r *Repo[E]) Insert(ctx context.Context, e E) (int64, error) {
	var id int64
	_, err := r.db.NewInsert().
		Model(&e).
		Returning("?", bun.Ident(r.pk)).
		Exec(ctx, &id)
	if err != nil {
		return 0, r.mapErr(err)
	}
	if id == 0 {
		return 0, fmt.Errorf("insert returned no %s", r.pk)
	}
	return id, nil
}

func (r *Repo[E]) Update(ctx context.Context, e E) error {
	res, err := r.db.NewUpdate().
		Model(&e).
		WherePK().
		Exec(ctx)
	if err != nil {
		return r.mapErr(err)
	}
	return requireAffected(res)
}

func (r *Repo[E]) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*E)(nil)).
		Where("? = ?", bun.Ident(r.pk), id).
		Exec(ctx)
	if err != nil {
		return r.mapErr(err)
	}
	return requireAffected(res)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffected) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// NewSet binds every entity repo to db, which may be a *bun.DB or a bun.Tx.
func NewSet(db bun.IDB, mapErr ErrorMapper) store.Set {
	return store.Set{
		Customers:    NewRepo[domain.Customer](db, "customer_id", mapErr),
		Appointments: NewRepo[domain.Appointment](db, "appointment_id", mapErr),
		Contacts:     NewRepo[domain.Contact](db, "contact_id", mapErr),
		Users:        NewRepo[domain.User](db, "user_id", mapErr),
		Divisions:    NewRepo[domain.Division](db, "division_id", mapErr),
		Countries:    NewRepo[domain.Country](db, "country_id", mapErr),
	}
}

// Transactor runs store.Set callbacks inside a bun transaction.
type Transactor struct {
	db     *bun.DB
	mapErr ErrorMapper
}

func NewTransactor(db *bun.DB, mapErr ErrorMapper) *Transactor {
	return &Transactor{db: db, mapErr: mapErr}
}

func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context, s store.Set) error) error {
	return t.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, NewSet(tx, t.mapErr))
	})
}
