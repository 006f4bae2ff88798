// Package reports aggregates a snapshot of appointments into the summary
// views. Every function is pure and returns rows in a deterministic order.
package reports

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sbrito346/school-project/internal/domain"
)

var (
	ErrUnknownCustomer = errors.New("report references an unknown customer")
	ErrUnknownContact  = errors.New("report references an unknown contact")
)

// Names resolves the ids an appointment carries to display records.
type Names interface {
	Customer(id int64) (domain.Customer, bool)
	Contact(id int64) (domain.Contact, bool)
}

type TypeMonth struct {
	Type  string
	Month time.Month
	Count int
}

// ByTypeAndMonth counts appointments per (type, start month). The month is the
// calendar month of the start in loc, regardless of year.
func ByTypeAndMonth(appts []domain.Appointment, loc *time.Location) []TypeMonth {
	type key struct {
		typ   string
		month time.Month
	}
	counts := map[key]int{}
	for _, a := range appts {
		counts[key{typ: a.Type, month: a.Start.In(loc).Month()}]++
	}

	out := make([]TypeMonth, 0, len(counts))
	for k, n := range counts {
		out = append(out, TypeMonth{Type: k.typ, Month: k.month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Month < out[j].Month
	})
	return out
}

type CustomerType struct {
	CustomerID   int64
	CustomerName string
	Type         string
	Count        int
}

// ByCustomerAndType counts appointments per (customer, type). An appointment
// whose customer cannot be resolved fails the whole report.
func ByCustomerAndType(appts []domain.Appointment, names Names) ([]CustomerType, error) {
	type key struct {
		customerID int64
		typ        string
	}
	counts := map[key]int{}
	for _, a := range appts {
		counts[key{customerID: a.CustomerID, typ: a.Type}]++
	}

	out := make([]CustomerType, 0, len(counts))
	for k, n := range counts {
		c, ok := names.Customer(k.customerID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCustomer, k.customerID)
		}
		out = append(out, CustomerType{CustomerID: k.customerID, CustomerName: c.Name, Type: k.typ, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerName != out[j].CustomerName {
			return out[i].CustomerName < out[j].CustomerName
		}
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

type ContactSchedule struct {
	ContactName  string
	Appointments []domain.Appointment
}

// ByContact groups appointments by contact name, each group ordered by start.
func ByContact(appts []domain.Appointment, names Names) ([]ContactSchedule, error) {
	groups := map[string][]domain.Appointment{}
	for _, a := range appts {
		c, ok := names.Contact(a.ContactID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownContact, a.ContactID)
		}
		groups[c.Name] = append(groups[c.Name], a)
	}

	out := make([]ContactSchedule, 0, len(groups))
	for name, list := range groups {
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].Start.Equal(list[j].Start) {
				return list[i].Start.Before(list[j].Start)
			}
			return list[i].ID < list[j].ID
		})
		out = append(out, ContactSchedule{ContactName: name, Appointments: list})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactName < out[j].ContactName })
	return out, nil
}
