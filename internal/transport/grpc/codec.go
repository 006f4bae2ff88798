package grpc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/service/appointments"
	"github.com/sbrito346/school-project/internal/service/customers"
)

func stringField(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	}
	return ""
}

// int64Field reads an id sent either as a JSON number or a decimal string.
// Absent or null fields read as 0.
func int64Field(s *structpb.Struct, key string) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int64(f), nil
	case *structpb.Value_StringValue:
		raw := strings.TrimSpace(k.StringValue)
		if raw == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%s must be an integer", key)
}

func appointmentDraft(req *structpb.Struct) (appointments.Draft, error) {
	d := appointments.Draft{
		Title:       stringField(req, "title"),
		Description: stringField(req, "description"),
		Location:    stringField(req, "location"),
		Type:        stringField(req, "type"),
		Contact:     stringField(req, "contact"),
		Start:       stringField(req, "start"),
		End:         stringField(req, "end"),
	}
	var err error
	if d.ID, err = int64Field(req, "appointment_id"); err != nil {
		return d, err
	}
	if d.CustomerID, err = int64Field(req, "customer_id"); err != nil {
		return d, err
	}
	if d.UserID, err = int64Field(req, "user_id"); err != nil {
		return d, err
	}
	return d, nil
}

func customerDraft(req *structpb.Struct) (customers.Draft, error) {
	d := customers.Draft{
		Name:       stringField(req, "name"),
		Address:    stringField(req, "address"),
		PostalCode: stringField(req, "postal_code"),
		Phone:      stringField(req, "phone"),
		Division:   stringField(req, "division"),
		Country:    stringField(req, "country"),
	}
	var err error
	if d.ID, err = int64Field(req, "customer_id"); err != nil {
		return d, err
	}
	if d.DivisionID, err = int64Field(req, "division_id"); err != nil {
		return d, err
	}
	return d, nil
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(appointments.DateTimeLayout)
}

func (s *Server) appointmentValue(a domain.Appointment, loc *time.Location) map[string]any {
	contact := ""
	if c, ok := s.dir.Contact(a.ContactID); ok {
		contact = c.Name
	}
	return map[string]any{
		"appointment_id":  a.ID,
		"title":           a.Title,
		"description":     a.Description,
		"location":        a.Location,
		"type":            a.Type,
		"contact":         contact,
		"contact_id":      a.ContactID,
		"start":           formatTime(a.Start, loc),
		"end":             formatTime(a.End, loc),
		"customer_id":     a.CustomerID,
		"user_id":         a.UserID,
		"created_at":      formatTime(a.CreatedAt, loc),
		"created_by":      a.CreatedBy,
		"last_updated_at": formatTime(a.UpdatedAt, loc),
		"last_updated_by": a.UpdatedBy,
	}
}

func (s *Server) appointmentList(appts []domain.Appointment, loc *time.Location) []any {
	out := make([]any, 0, len(appts))
	for _, a := range appts {
		out = append(out, s.appointmentValue(a, loc))
	}
	return out
}

func (s *Server) customerValue(c domain.Customer, loc *time.Location) map[string]any {
	division, country := "", ""
	if d, ok := s.dir.Division(c.DivisionID); ok {
		division = d.Name
		if ct, ok := s.dir.Country(d.CountryID); ok {
			country = ct.Name
		}
	}
	return map[string]any{
		"customer_id":       c.ID,
		"name":              c.Name,
		"address":           c.Address,
		"postal_code":       c.PostalCode,
		"phone":             c.Phone,
		"division_id":       c.DivisionID,
		"division":          division,
		"country":           country,
		"appointment_count": len(c.Appointments),
		"created_at":        formatTime(c.CreatedAt, loc),
		"created_by":        c.CreatedBy,
		"last_updated_at":   formatTime(c.UpdatedAt, loc),
		"last_updated_by":   c.UpdatedBy,
	}
}
