package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/store"
)

var fixedNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func newTestDirectory(t *testing.T) (*Directory, *fakeStores) {
	t.Helper()

	fs := newFakeStores()
	fs.countries.seed(domain.Country{ID: 1, Name: "U.S"})
	fs.countries.seed(domain.Country{ID: 2, Name: "Canada"})
	fs.divisions.seed(domain.Division{ID: 10, Name: "Texas", CountryID: 1})
	fs.divisions.seed(domain.Division{ID: 11, Name: "Alabama", CountryID: 1})
	fs.divisions.seed(domain.Division{ID: 20, Name: "Ontario", CountryID: 2})
	fs.users.seed(domain.User{ID: 1, Name: "test", PasswordHash: "x"})
	fs.contacts.seed(domain.Contact{ID: 1, Name: "Anika Costa", Email: "acoasta@company.com"})
	fs.contacts.seed(domain.Contact{ID: 2, Name: "Daniel Garcia", Email: "dgarcia@company.com"})
	fs.customers.seed(domain.Customer{ID: 1, Name: "Daddy Warbucks", DivisionID: 10})
	fs.customers.seed(domain.Customer{ID: 2, Name: "Lady McAnderson", DivisionID: 20})
	fs.appointments.seed(appt(1, 1, fixedNow.Add(24*time.Hour)))

	d := New(fs.set(), fs, Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, d.Load(context.Background()))
	return d, fs
}

func appt(id, customerID int64, start time.Time) domain.Appointment {
	return domain.Appointment{
		ID:         id,
		Title:      fmt.Sprintf("appt %d", id),
		Type:       "Planning Session",
		Start:      start,
		End:        start.Add(time.Hour),
		CustomerID: customerID,
		UserID:     1,
		ContactID:  1,
	}
}

func requireMirrored(t *testing.T, d *Directory) {
	t.Helper()
	global := d.Appointments()
	owned := 0
	for _, c := range d.Customers() {
		for _, a := range c.Appointments {
			require.Equal(t, c.ID, a.CustomerID, "appointment %d owned by wrong customer", a.ID)
			g, ok := d.Appointment(a.ID)
			require.True(t, ok, "appointment %d missing from global index", a.ID)
			require.True(t, g.Equal(a), "appointment %d differs between list and index", a.ID)
			owned++
		}
	}
	require.Len(t, global, owned)
}

func TestLoad_BuildsCustomerListsAndIndex(t *testing.T) {
	d, _ := newTestDirectory(t)

	c, ok := d.Customer(1)
	require.True(t, ok)
	require.Len(t, c.Appointments, 1)

	c2, ok := d.Customer(2)
	require.True(t, ok)
	require.Empty(t, c2.Appointments)

	require.Len(t, d.Appointments(), 1)
	requireMirrored(t, d)
}

func TestLoad_RejectsOrphanAppointment(t *testing.T) {
	fs := newFakeStores()
	fs.appointments.seed(appt(1, 99, fixedNow))
	d := New(fs.set(), fs, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.ErrorContains(t, d.Load(context.Background()), "unknown customer 99")
}

func TestLoad_RejectsDuplicateCustomerID(t *testing.T) {
	fs := newFakeStores()
	fs.customers.seed(domain.Customer{ID: 1, Name: "Daddy Warbucks"})
	fs.customers.seed(domain.Customer{ID: 1, Name: "Lady McAnderson"})
	d := New(fs.set(), fs, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.ErrorContains(t, d.Load(context.Background()), "duplicate customer id 1")
}

func TestLoad_RehydratesInConfiguredLocation(t *testing.T) {
	fs := newFakeStores()
	fs.customers.seed(domain.Customer{ID: 1})
	fs.appointments.seed(appt(1, 1, fixedNow))
	ny, err := time.LoadLocation(domain.BusinessZone)
	require.NoError(t, err)

	d := New(fs.set(), fs, Options{Location: ny, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, d.Load(context.Background()))

	got, ok := d.Appointment(1)
	require.True(t, ok)
	require.Equal(t, ny, got.Start.Location())
	require.True(t, got.Start.Equal(fixedNow))
}

func TestAddAppointment_StampsAndMirrors(t *testing.T) {
	d, fs := newTestDirectory(t)

	in := appt(0, 2, fixedNow.Add(48*time.Hour))
	got, err := d.AddAppointment(context.Background(), "test", in, nil)
	require.NoError(t, err)
	require.NotZero(t, got.ID)
	require.Equal(t, "test", got.CreatedBy)
	require.Equal(t, "test", got.UpdatedBy)
	require.True(t, got.CreatedAt.Equal(fixedNow))
	require.True(t, got.UpdatedAt.Equal(fixedNow))
	require.Equal(t, 1, fs.appointments.inserts)

	list, ok := d.CustomerAppointments(2)
	require.True(t, ok)
	require.Len(t, list, 1)
	require.True(t, list[0].Equal(got))
	requireMirrored(t, d)
}

func TestAddThenRemove_RestoresPriorState(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	beforeList, _ := d.CustomerAppointments(1)
	beforeIndex := d.Appointments()

	added, err := d.AddAppointment(ctx, "test", appt(0, 1, fixedNow.Add(72*time.Hour)), nil)
	require.NoError(t, err)
	_, err = d.RemoveAppointment(ctx, added.ID)
	require.NoError(t, err)

	afterList, _ := d.CustomerAppointments(1)
	require.Equal(t, beforeList, afterList)
	require.Equal(t, beforeIndex, d.Appointments())
}

func TestAddAppointment_StoreFailureLeavesCacheUntouched(t *testing.T) {
	d, fs := newTestDirectory(t)
	fs.appointments.insertErr = fmt.Errorf("fk: %w", store.ErrConstraint)

	before := d.Appointments()
	_, err := d.AddAppointment(context.Background(), "test", appt(0, 1, fixedNow.Add(72*time.Hour)), nil)

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	require.ErrorIs(t, err, store.ErrConstraint)
	require.Equal(t, before, d.Appointments())
	list, _ := d.CustomerAppointments(1)
	require.Len(t, list, 1)
}

func TestAddAppointment_FailedPreconditionSkipsStore(t *testing.T) {
	d, fs := newTestDirectory(t)

	var seen []domain.Appointment
	_, err := d.AddAppointment(context.Background(), "test", appt(0, 1, fixedNow), func(existing []domain.Appointment) error {
		seen = existing
		return errInjected
	})
	require.ErrorIs(t, err, errInjected)
	require.Len(t, seen, 1)
	require.Zero(t, fs.totalCalls())
}

func TestAddAppointment_UnknownCustomer(t *testing.T) {
	d, fs := newTestDirectory(t)
	_, err := d.AddAppointment(context.Background(), "test", appt(0, 42, fixedNow), nil)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Zero(t, fs.totalCalls())
}

func TestEditAppointment_ReplacesByIDAndKeepsCreation(t *testing.T) {
	d, fs := newTestDirectory(t)
	ctx := context.Background()

	created, err := d.AddAppointment(ctx, "creator", appt(0, 1, fixedNow.Add(72*time.Hour)), nil)
	require.NoError(t, err)

	later := fixedNow.Add(time.Hour)
	d.now = func() time.Time { return later }

	edit := created
	edit.Title = "renamed"
	edit.CreatedBy = "forged"
	edit.CreatedAt = time.Time{}
	got, err := d.EditAppointment(ctx, "editor", edit, nil)
	require.NoError(t, err)

	require.Equal(t, "renamed", got.Title)
	require.Equal(t, "creator", got.CreatedBy)
	require.True(t, got.CreatedAt.Equal(fixedNow))
	require.Equal(t, "editor", got.UpdatedBy)
	require.True(t, got.UpdatedAt.Equal(later))
	require.Equal(t, 1, fs.appointments.updates)

	list, _ := d.CustomerAppointments(1)
	require.Len(t, list, 2)
	fromIndex, ok := d.Appointment(created.ID)
	require.True(t, ok)
	require.True(t, fromIndex.Equal(got))
	requireMirrored(t, d)
}

func TestEditAppointment_MovesBetweenCustomers(t *testing.T) {
	d, _ := newTestDirectory(t)

	moved := appt(1, 2, fixedNow.Add(24*time.Hour))
	_, err := d.EditAppointment(context.Background(), "test", moved, nil)
	require.NoError(t, err)

	from, _ := d.CustomerAppointments(1)
	to, _ := d.CustomerAppointments(2)
	require.Empty(t, from)
	require.Len(t, to, 1)
	requireMirrored(t, d)
}

func TestEditAppointment_UnknownIDSkipsStore(t *testing.T) {
	d, fs := newTestDirectory(t)
	_, err := d.EditAppointment(context.Background(), "test", appt(77, 1, fixedNow), nil)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Zero(t, fs.totalCalls())
}

func TestEditAppointment_StoreNotFoundIsPersistenceError(t *testing.T) {
	d, fs := newTestDirectory(t)
	fs.appointments.rows = nil

	before := d.Appointments()
	_, err := d.EditAppointment(context.Background(), "test", appt(1, 1, fixedNow), nil)
	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Equal(t, before, d.Appointments())
}

func TestConsistencyFault_QuarantinesRecordUntilReload(t *testing.T) {
	d, fs := newTestDirectory(t)
	ctx := context.Background()

	// Drop the owned copy so the cache can no longer mirror a successful update.
	d.customers[d.customerIdx[1]].Appointments = nil

	_, err := d.EditAppointment(ctx, "test", appt(1, 1, fixedNow.Add(24*time.Hour)), nil)
	var fault *ConsistencyFault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, int64(1), fault.ID)
	require.Equal(t, EntityAppointment, fault.Entity)

	updates := fs.appointments.updates
	_, err = d.EditAppointment(ctx, "test", appt(1, 1, fixedNow.Add(24*time.Hour)), nil)
	require.ErrorIs(t, err, ErrQuarantined)
	_, err = d.RemoveAppointment(ctx, 1)
	require.ErrorIs(t, err, ErrQuarantined)
	require.Equal(t, updates, fs.appointments.updates)

	require.NoError(t, d.Load(ctx))
	_, err = d.RemoveAppointment(ctx, 1)
	require.NoError(t, err)
}

func TestRemoveAppointment_UnknownIDSkipsStore(t *testing.T) {
	d, fs := newTestDirectory(t)
	_, err := d.RemoveAppointment(context.Background(), 55)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Zero(t, fs.totalCalls())
}

func TestCustomerLifecycle(t *testing.T) {
	d, fs := newTestDirectory(t)
	ctx := context.Background()

	c, err := d.AddCustomer(ctx, "test", domain.Customer{Name: "Nomad", Address: "1 Road", PostalCode: "1", Phone: "2", DivisionID: 10})
	require.NoError(t, err)
	require.NotZero(t, c.ID)
	require.Empty(t, c.Appointments)
	require.Equal(t, "test", c.CreatedBy)

	_, err = d.AddAppointment(ctx, "test", appt(0, c.ID, fixedNow.Add(96*time.Hour)), nil)
	require.NoError(t, err)

	c.Name = "Settled"
	c.Appointments = nil
	edited, err := d.EditCustomer(ctx, "editor", c)
	require.NoError(t, err)
	require.Equal(t, "Settled", edited.Name)
	require.Len(t, edited.Appointments, 1, "edit must keep the cached appointment list")
	require.Equal(t, "test", edited.CreatedBy)
	require.Equal(t, "editor", edited.UpdatedBy)

	require.NoError(t, d.DeleteCustomer(ctx, c.ID))
	_, ok := d.Customer(c.ID)
	require.False(t, ok)
	for _, a := range d.Appointments() {
		require.NotEqual(t, c.ID, a.CustomerID)
	}
	for _, row := range fs.appointments.rows {
		require.NotEqual(t, c.ID, row.CustomerID)
	}
	requireMirrored(t, d)

	// Indexes of the remaining customers survive the removal.
	c2, ok := d.Customer(2)
	require.True(t, ok)
	require.Equal(t, "Lady McAnderson", c2.Name)
}

func TestDeleteCustomer_FailureRollsBackStoreAndCache(t *testing.T) {
	d, fs := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.AddAppointment(ctx, "test", appt(0, 1, fixedNow.Add(96*time.Hour)), nil)
	require.NoError(t, err)
	rowsBefore := len(fs.appointments.rows)
	cacheBefore := d.Appointments()

	fs.appointments.deleteErrAt = fs.appointments.deletes + 2
	err = d.DeleteCustomer(ctx, 1)
	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	require.ErrorIs(t, err, store.ErrUnavailable)

	require.Len(t, fs.appointments.rows, rowsBefore)
	require.Equal(t, cacheBefore, d.Appointments())
	_, ok := d.Customer(1)
	require.True(t, ok)
}

func TestEditCustomer_Unknown(t *testing.T) {
	d, fs := newTestDirectory(t)
	_, err := d.EditCustomer(context.Background(), "test", domain.Customer{ID: 404})
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Zero(t, fs.totalCalls())
}

func TestReferenceLookups(t *testing.T) {
	d, _ := newTestDirectory(t)

	divs := d.DivisionsByCountry("U.S")
	require.Len(t, divs, 2)
	require.Equal(t, "Alabama", divs[0].Name)
	require.Equal(t, "Texas", divs[1].Name)
	require.Nil(t, d.DivisionsByCountry("Atlantis"))

	v, ok := d.DivisionByName("Ontario", "Canada")
	require.True(t, ok)
	require.Equal(t, int64(20), v.ID)
	_, ok = d.DivisionByName("Ontario", "U.S")
	require.False(t, ok)

	c, ok := d.ContactByName(" Daniel Garcia ")
	require.True(t, ok)
	require.Equal(t, int64(2), c.ID)

	u, ok := d.UserByName("test")
	require.True(t, ok)
	require.Equal(t, int64(1), u.ID)
	_, ok = d.User(9)
	require.False(t, ok)

	country, ok := d.Country(2)
	require.True(t, ok)
	require.Equal(t, "Canada", country.Name)
	require.Len(t, d.Countries(), 2)
	require.Len(t, d.Contacts(), 2)
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	d, _ := newTestDirectory(t)

	cs := d.Customers()
	cs[0].Appointments[0].Title = "mutated"
	all := d.Appointments()
	all[0].Title = "mutated"

	got, _ := d.Appointment(1)
	require.Equal(t, "appt 1", got.Title)
	list, _ := d.CustomerAppointments(1)
	require.Equal(t, "appt 1", list[0].Title)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := d.AddAppointment(ctx, "test", appt(0, 2, fixedNow.Add(time.Duration(100+i)*time.Hour)), nil)
			if err != nil {
				errs <- err
				return
			}
			if i%2 == 0 {
				if _, err := d.RemoveAppointment(ctx, a.ID); err != nil {
					errs <- err
				}
			}
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = d.Customers()
				_ = d.Appointments()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, _ := d.CustomerAppointments(2)
	require.Len(t, list, 4)
	requireMirrored(t, d)
}

func TestErrorsUnwrap(t *testing.T) {
	err := error(&PersistenceError{Op: "insert", Entity: EntityAppointment, Err: store.ErrUnavailable})
	require.True(t, errors.Is(err, store.ErrUnavailable))
	require.Equal(t, "insert appointment: store unavailable", err.Error())

	fault := &ConsistencyFault{Op: "delete", Entity: EntityCustomer, ID: 3}
	require.Contains(t, fault.Error(), "delete customer 3")
}
