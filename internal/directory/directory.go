// Package directory keeps the in-memory customer and appointment cache in
// step with the authoritative store. Every mutation writes the store first and
// only then reflects the change in the cache, under a single writer lock.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/store"
)

const (
	EntityCustomer    = "customer"
	EntityAppointment = "appointment"
)

// ErrQuarantined is returned for any mutation of a record that previously
// produced a ConsistencyFault. Reloading the directory clears it.
var ErrQuarantined = errors.New("record quarantined after consistency fault")

// PersistenceError wraps a store failure. The cache is untouched when it is returned.
type PersistenceError struct {
	Op     string
	Entity string
	ID     int64
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConsistencyFault reports that the store accepted a mutation the cache could
// not mirror. The affected id is quarantined.
type ConsistencyFault struct {
	Op     string
	Entity string
	ID     int64
}

func (e *ConsistencyFault) Error() string {
	return fmt.Sprintf("consistency fault: %s %s %d: cache does not hold the record", e.Op, e.Entity, e.ID)
}

// Precondition inspects the target customer's current appointments while the
// writer lock is held. A non-nil error aborts the mutation before the store is touched.
type Precondition func(existing []domain.Appointment) error

type Options struct {
	Logger *slog.Logger
	// Location is the zone cached timestamps are expressed in. Defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
}

type quarantineKey struct {
	entity string
	id     int64
}

type Directory struct {
	stores store.Set
	tx     store.Transactor
	log    *slog.Logger
	loc    *time.Location
	now    func() time.Time

	mu           sync.RWMutex
	customers    []domain.Customer
	customerIdx  map[int64]int
	appointments []domain.Appointment
	users        []domain.User
	contacts     []domain.Contact
	divisions    []domain.Division
	countries    []domain.Country
	quarantine   map[quarantineKey]struct{}
}

func New(stores store.Set, tx store.Transactor, opts Options) *Directory {
	d := &Directory{
		stores:      stores,
		tx:          tx,
		log:         opts.Logger,
		loc:         opts.Location,
		now:         opts.Now,
		customerIdx: map[int64]int{},
		quarantine:  map[quarantineKey]struct{}{},
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.loc == nil {
		d.loc = time.Local
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.log = d.log.With(slog.String("component", "directory"))
	return d
}

// Location is the zone every snapshot is expressed in.
func (d *Directory) Location() *time.Location { return d.loc }

// Load replaces the cache with the store's contents and clears any quarantine.
func (d *Directory) Load(ctx context.Context) error {
	countries, err := d.stores.Countries.LoadAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Entity: "country", Err: err}
	}
	divisions, err := d.stores.Divisions.LoadAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Entity: "division", Err: err}
	}
	users, err := d.stores.Users.LoadAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Entity: "user", Err: err}
	}
	contacts, err := d.stores.Contacts.LoadAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Entity: "contact", Err: err}
	}
	customers, err := d.stores.Customers.LoadAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Entity: EntityCustomer, Err: err}
	}
	appts, err := d.stores.Appointments.LoadAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Entity: EntityAppointment, Err: err}
	}

	idx := make(map[int64]int, len(customers))
	for i := range customers {
		customers[i] = customers[i].In(d.loc)
		customers[i].Appointments = nil
		if _, dup := idx[customers[i].ID]; dup {
			return fmt.Errorf("load: duplicate customer id %d", customers[i].ID)
		}
		idx[customers[i].ID] = i
	}
	seen := make(map[int64]struct{}, len(appts))
	for i := range appts {
		a := appts[i].In(d.loc)
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("load: duplicate appointment id %d", a.ID)
		}
		seen[a.ID] = struct{}{}
		ci, ok := idx[a.CustomerID]
		if !ok {
			return fmt.Errorf("load: appointment %d references unknown customer %d", a.ID, a.CustomerID)
		}
		appts[i] = a
		customers[ci].Appointments = append(customers[ci].Appointments, a)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.countries = countries
	d.divisions = divisions
	d.users = users
	d.contacts = contacts
	d.customers = customers
	d.customerIdx = idx
	d.appointments = appts
	d.quarantine = map[quarantineKey]struct{}{}

	d.log.Info("directory loaded",
		slog.Int("customers", len(customers)),
		slog.Int("appointments", len(appts)),
		slog.Int("users", len(users)),
		slog.Int("contacts", len(contacts)),
	)
	return nil
}

func (d *Directory) Customer(id int64) (domain.Customer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.customerIdx[id]
	if !ok {
		return domain.Customer{}, false
	}
	return d.customers[i].Clone(), true
}

// Customers returns every customer with its appointments, in load/insert order.
func (d *Directory) Customers() []domain.Customer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Customer, len(d.customers))
	for i := range d.customers {
		out[i] = d.customers[i].Clone()
	}
	return out
}

// CustomerAppointments returns a copy of one customer's appointment list.
func (d *Directory) CustomerAppointments(customerID int64) ([]domain.Appointment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.customerIdx[customerID]
	if !ok {
		return nil, false
	}
	return cloneAppointments(d.customers[i].Appointments), true
}

// Appointments returns a copy of the global index.
func (d *Directory) Appointments() []domain.Appointment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneAppointments(d.appointments)
}

func (d *Directory) Appointment(id int64) (domain.Appointment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := indexOf(d.appointments, id)
	if i < 0 {
		return domain.Appointment{}, false
	}
	return d.appointments[i], true
}

func (d *Directory) User(id int64) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}

func (d *Directory) UserByName(name string) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Name == name {
			return u, true
		}
	}
	return domain.User{}, false
}

func (d *Directory) Contact(id int64) (domain.Contact, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Contact{}, false
}

func (d *Directory) ContactByName(name string) (domain.Contact, bool) {
	name = strings.TrimSpace(name)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.contacts {
		if c.Name == name {
			return c, true
		}
	}
	return domain.Contact{}, false
}

func (d *Directory) Contacts() []domain.Contact {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]domain.Contact(nil), d.contacts...)
}

func (d *Directory) Division(id int64) (domain.Division, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, v := range d.divisions {
		if v.ID == id {
			return v, true
		}
	}
	return domain.Division{}, false
}

func (d *Directory) Country(id int64) (domain.Country, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.countries {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Country{}, false
}

func (d *Directory) Countries() []domain.Country {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]domain.Country(nil), d.countries...)
}

// DivisionsByCountry lists the divisions of the named country, sorted by name.
func (d *Directory) DivisionsByCountry(country string) []domain.Division {
	d.mu.RLock()
	defer d.mu.RUnlock()
	countryID, ok := d.countryIDLocked(country)
	if !ok {
		return nil
	}
	var out []domain.Division
	for _, v := range d.divisions {
		if v.CountryID == countryID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DivisionByName resolves a division by its name within the named country.
func (d *Directory) DivisionByName(name, country string) (domain.Division, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	countryID, ok := d.countryIDLocked(country)
	if !ok {
		return domain.Division{}, false
	}
	for _, v := range d.divisions {
		if v.CountryID == countryID && v.Name == name {
			return v, true
		}
	}
	return domain.Division{}, false
}

func (d *Directory) countryIDLocked(name string) (int64, bool) {
	for _, c := range d.countries {
		if c.Name == name {
			return c.ID, true
		}
	}
	return 0, false
}

// AddAppointment stamps a, inserts it, and appends the committed record to its
// customer's list and the global index.
func (d *Directory) AddAppointment(ctx context.Context, actor string, a domain.Appointment, check Precondition) (domain.Appointment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ci, ok := d.customerIdx[a.CustomerID]
	if !ok {
		return domain.Appointment{}, fmt.Errorf("customer %d: %w", a.CustomerID, store.ErrNotFound)
	}
	if d.quarantinedLocked(EntityCustomer, a.CustomerID) {
		return domain.Appointment{}, fmt.Errorf("customer %d: %w", a.CustomerID, ErrQuarantined)
	}
	if check != nil {
		if err := check(cloneAppointments(d.customers[ci].Appointments)); err != nil {
			return domain.Appointment{}, err
		}
	}

	a.ID = 0
	a.Start, a.End = storePrecision(a.Start), storePrecision(a.End)
	a.StampCreated(d.stampNow(), actor)
	id, err := d.stores.Appointments.Insert(ctx, a)
	if err != nil {
		return domain.Appointment{}, d.persistenceFailure("insert", EntityAppointment, 0, err)
	}
	a.ID = id
	a = a.In(d.loc)

	if indexOf(d.appointments, id) >= 0 {
		return domain.Appointment{}, d.fault("insert", EntityAppointment, id)
	}
	d.customers[ci].Appointments = append(d.customers[ci].Appointments, a)
	d.appointments = append(d.appointments, a)

	d.log.Info("appointment added", slog.Int64("appointment_id", id), slog.Int64("customer_id", a.CustomerID), slog.String("actor", actor))
	return a, nil
}

// EditAppointment persists a over the record with the same id, keeping the
// original creation audit pair. A change of customer moves the record between lists.
func (d *Directory) EditAppointment(ctx context.Context, actor string, a domain.Appointment, check Precondition) (domain.Appointment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quarantinedLocked(EntityAppointment, a.ID) {
		return domain.Appointment{}, fmt.Errorf("appointment %d: %w", a.ID, ErrQuarantined)
	}
	gi := indexOf(d.appointments, a.ID)
	if gi < 0 {
		return domain.Appointment{}, fmt.Errorf("appointment %d: %w", a.ID, store.ErrNotFound)
	}
	orig := d.appointments[gi]

	ci, ok := d.customerIdx[a.CustomerID]
	if !ok {
		return domain.Appointment{}, fmt.Errorf("customer %d: %w", a.CustomerID, store.ErrNotFound)
	}
	if d.quarantinedLocked(EntityCustomer, a.CustomerID) {
		return domain.Appointment{}, fmt.Errorf("customer %d: %w", a.CustomerID, ErrQuarantined)
	}
	if check != nil {
		if err := check(cloneAppointments(d.customers[ci].Appointments)); err != nil {
			return domain.Appointment{}, err
		}
	}

	a.Audit = orig.Audit
	a.Start, a.End = storePrecision(a.Start), storePrecision(a.End)
	a.StampUpdated(d.stampNow(), actor)
	if err := d.stores.Appointments.Update(ctx, a); err != nil {
		return domain.Appointment{}, d.persistenceFailure("update", EntityAppointment, a.ID, err)
	}
	a = a.In(d.loc)

	oi, ok := d.customerIdx[orig.CustomerID]
	if !ok {
		return domain.Appointment{}, d.fault("update", EntityAppointment, a.ID)
	}
	pos := indexOf(d.customers[oi].Appointments, a.ID)
	if pos < 0 {
		return domain.Appointment{}, d.fault("update", EntityAppointment, a.ID)
	}

	if oi == ci {
		d.customers[ci].Appointments[pos] = a
	} else {
		d.customers[oi].Appointments = removeAt(d.customers[oi].Appointments, pos)
		d.customers[ci].Appointments = append(d.customers[ci].Appointments, a)
	}
	d.appointments[gi] = a

	d.log.Info("appointment updated", slog.Int64("appointment_id", a.ID), slog.Int64("customer_id", a.CustomerID), slog.String("actor", actor))
	return a, nil
}

// RemoveAppointment deletes the appointment from the store, its customer's list and the global index.
func (d *Directory) RemoveAppointment(ctx context.Context, id int64) (domain.Appointment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quarantinedLocked(EntityAppointment, id) {
		return domain.Appointment{}, fmt.Errorf("appointment %d: %w", id, ErrQuarantined)
	}
	gi := indexOf(d.appointments, id)
	if gi < 0 {
		return domain.Appointment{}, fmt.Errorf("appointment %d: %w", id, store.ErrNotFound)
	}
	removed := d.appointments[gi]

	if err := d.stores.Appointments.Delete(ctx, id); err != nil {
		return domain.Appointment{}, d.persistenceFailure("delete", EntityAppointment, id, err)
	}

	ci, ok := d.customerIdx[removed.CustomerID]
	if !ok {
		return domain.Appointment{}, d.fault("delete", EntityAppointment, id)
	}
	pos := indexOf(d.customers[ci].Appointments, id)
	if pos < 0 {
		return domain.Appointment{}, d.fault("delete", EntityAppointment, id)
	}
	d.customers[ci].Appointments = removeAt(d.customers[ci].Appointments, pos)
	d.appointments = removeAt(d.appointments, gi)

	d.log.Info("appointment removed", slog.Int64("appointment_id", id), slog.Int64("customer_id", removed.CustomerID))
	return removed, nil
}

// AddCustomer stamps and inserts c, then appends it with an empty appointment list.
func (d *Directory) AddCustomer(ctx context.Context, actor string, c domain.Customer) (domain.Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c.ID = 0
	c.Appointments = nil
	c.StampCreated(d.stampNow(), actor)
	id, err := d.stores.Customers.Insert(ctx, c)
	if err != nil {
		return domain.Customer{}, d.persistenceFailure("insert", EntityCustomer, 0, err)
	}
	c.ID = id
	c = c.In(d.loc)

	if _, dup := d.customerIdx[id]; dup {
		return domain.Customer{}, d.fault("insert", EntityCustomer, id)
	}
	d.customers = append(d.customers, c)
	d.customerIdx[id] = len(d.customers) - 1

	d.log.Info("customer added", slog.Int64("customer_id", id), slog.String("actor", actor))
	return c.Clone(), nil
}

// EditCustomer persists c over the record with the same id. The cached
// appointment list and the creation audit pair are carried over.
func (d *Directory) EditCustomer(ctx context.Context, actor string, c domain.Customer) (domain.Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quarantinedLocked(EntityCustomer, c.ID) {
		return domain.Customer{}, fmt.Errorf("customer %d: %w", c.ID, ErrQuarantined)
	}
	i, ok := d.customerIdx[c.ID]
	if !ok {
		return domain.Customer{}, fmt.Errorf("customer %d: %w", c.ID, store.ErrNotFound)
	}
	orig := d.customers[i]

	c.Audit = orig.Audit
	c.StampUpdated(d.stampNow(), actor)
	c.Appointments = orig.Appointments
	if err := d.stores.Customers.Update(ctx, c); err != nil {
		return domain.Customer{}, d.persistenceFailure("update", EntityCustomer, c.ID, err)
	}
	c.Audit = c.Audit.In(d.loc)
	d.customers[i] = c

	d.log.Info("customer updated", slog.Int64("customer_id", c.ID), slog.String("actor", actor))
	return c.Clone(), nil
}

// DeleteCustomer removes the customer's appointments and then the customer
// inside one store transaction, then drops all of them from the cache.
func (d *Directory) DeleteCustomer(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quarantinedLocked(EntityCustomer, id) {
		return fmt.Errorf("customer %d: %w", id, ErrQuarantined)
	}
	i, ok := d.customerIdx[id]
	if !ok {
		return fmt.Errorf("customer %d: %w", id, store.ErrNotFound)
	}
	owned := d.customers[i].Appointments
	for _, a := range owned {
		if d.quarantinedLocked(EntityAppointment, a.ID) {
			return fmt.Errorf("appointment %d: %w", a.ID, ErrQuarantined)
		}
	}

	err := d.tx.InTx(ctx, func(ctx context.Context, s store.Set) error {
		for _, a := range owned {
			if err := s.Appointments.Delete(ctx, a.ID); err != nil {
				return fmt.Errorf("appointment %d: %w", a.ID, err)
			}
		}
		return s.Customers.Delete(ctx, id)
	})
	if err != nil {
		return d.persistenceFailure("delete", EntityCustomer, id, err)
	}

	var faulted error
	for _, a := range owned {
		gi := indexOf(d.appointments, a.ID)
		if gi < 0 {
			faulted = d.fault("delete", EntityAppointment, a.ID)
			continue
		}
		d.appointments = removeAt(d.appointments, gi)
	}
	d.customers = append(d.customers[:i:i], d.customers[i+1:]...)
	d.reindexLocked()

	if faulted != nil {
		return faulted
	}
	d.log.Info("customer deleted", slog.Int64("customer_id", id), slog.Int("appointments", len(owned)))
	return nil
}

func (d *Directory) reindexLocked() {
	d.customerIdx = make(map[int64]int, len(d.customers))
	for i := range d.customers {
		d.customerIdx[d.customers[i].ID] = i
	}
}

func (d *Directory) quarantinedLocked(entity string, id int64) bool {
	_, ok := d.quarantine[quarantineKey{entity: entity, id: id}]
	return ok
}

func (d *Directory) fault(op, entity string, id int64) error {
	d.quarantine[quarantineKey{entity: entity, id: id}] = struct{}{}
	d.log.Error("consistency fault",
		slog.String("op", op),
		slog.String("entity", entity),
		slog.Int64("id", id),
	)
	return &ConsistencyFault{Op: op, Entity: entity, ID: id}
}

func (d *Directory) persistenceFailure(op, entity string, id int64, err error) error {
	d.log.Error("store mutation failed",
		slog.String("op", op),
		slog.String("entity", entity),
		slog.Int64("id", id),
		slog.String("error", err.Error()),
	)
	return &PersistenceError{Op: op, Entity: entity, ID: id, Err: err}
}

// stampNow is the audit clock at the resolution the stores keep.
func (d *Directory) stampNow() time.Time {
	return storePrecision(d.now())
}

// storePrecision drops what postgres timestamptz and the sqlite driver cannot
// round-trip, so a committed record equals its reloaded row.
func storePrecision(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}

func indexOf(appts []domain.Appointment, id int64) int {
	for i := range appts {
		if appts[i].ID == id {
			return i
		}
	}
	return -1
}

// removeAt returns a new slice without element i so earlier snapshots stay intact.
func removeAt(appts []domain.Appointment, i int) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(appts)-1)
	out = append(out, appts[:i]...)
	return append(out, appts[i+1:]...)
}

func cloneAppointments(appts []domain.Appointment) []domain.Appointment {
	if appts == nil {
		return nil
	}
	out := make([]domain.Appointment, len(appts))
	copy(out, appts)
	return out
}
