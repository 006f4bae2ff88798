package appointments

import (
	"fmt"
	"strings"
	"time"

	"github.com/sbrito346/school-project/internal/domain"
)

// DateTimeLayout is the only accepted wall-clock format for draft start and end values.
const DateTimeLayout = "2006-01-02 15:04:05"

type Reason string

const (
	ReasonMissingFields          Reason = "MissingFields"
	ReasonInvalidDateFormat      Reason = "InvalidDateFormat"
	ReasonUnknownCustomer        Reason = "UnknownCustomer"
	ReasonUnknownUser            Reason = "UnknownUser"
	ReasonUnknownContact         Reason = "UnknownContact"
	ReasonEndBeforeStart         Reason = "EndBeforeStart"
	ReasonOutsideBusinessHours   Reason = "OutsideBusinessHours"
	ReasonOverlappingAppointment Reason = "OverlappingAppointment"
)

type ValidationError struct {
	Reason Reason
	msg    string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(reason Reason, msg string) error {
	return &ValidationError{Reason: reason, msg: msg}
}

// Draft is an appointment as entered by a user. Start and End are wall-clock
// strings in DateTimeLayout, read in the session's zone. Zero ids mean unset.
type Draft struct {
	ID          int64
	Title       string
	Description string
	Location    string
	Type        string
	Contact     string
	Start       string
	End         string
	CustomerID  int64
	UserID      int64
}

// References resolves the ids and names a draft points at.
type References interface {
	Customer(id int64) (domain.Customer, bool)
	User(id int64) (domain.User, bool)
	ContactByName(name string) (domain.Contact, bool)
}

// Validator checks drafts against the scheduling rules. It performs no I/O
// and is safe for concurrent use.
type Validator struct {
	Hours domain.BusinessHours
	// Zone is the zone draft wall-clock values are interpreted in.
	Zone *time.Location
}

// Validate runs every rule in order and stops at the first failure. existing
// is the target customer's current appointment list.
func (v Validator) Validate(d Draft, refs References, existing []domain.Appointment) (domain.Appointment, error) {
	cand, err := v.Prepare(d, refs)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := CheckOverlap(cand, existing); err != nil {
		return domain.Appointment{}, err
	}
	return cand, nil
}

// Prepare runs every rule except the overlap check and returns the parsed candidate.
func (v Validator) Prepare(d Draft, refs References) (domain.Appointment, error) {
	if missing := missingFields(d); len(missing) > 0 {
		return domain.Appointment{}, validationError(ReasonMissingFields, "missing required fields: "+strings.Join(missing, ", "))
	}

	zone := v.Zone
	if zone == nil {
		zone = time.Local
	}
	start, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(d.Start), zone)
	if err != nil {
		return domain.Appointment{}, validationError(ReasonInvalidDateFormat, "start must be formatted as yyyy-MM-dd HH:mm:ss")
	}
	end, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(d.End), zone)
	if err != nil {
		return domain.Appointment{}, validationError(ReasonInvalidDateFormat, "end must be formatted as yyyy-MM-dd HH:mm:ss")
	}

	if _, ok := refs.Customer(d.CustomerID); !ok {
		return domain.Appointment{}, validationError(ReasonUnknownCustomer, fmt.Sprintf("customer %d does not exist", d.CustomerID))
	}
	if _, ok := refs.User(d.UserID); !ok {
		return domain.Appointment{}, validationError(ReasonUnknownUser, fmt.Sprintf("user %d does not exist", d.UserID))
	}
	contact, ok := refs.ContactByName(d.Contact)
	if !ok {
		return domain.Appointment{}, validationError(ReasonUnknownContact, fmt.Sprintf("contact %q does not exist", strings.TrimSpace(d.Contact)))
	}

	r := domain.TimeRange{Start: start, End: end}
	if !r.Valid() {
		return domain.Appointment{}, validationError(ReasonEndBeforeStart, "end must be after start")
	}
	if !v.Hours.Contains(r) {
		return domain.Appointment{}, validationError(ReasonOutsideBusinessHours, fmt.Sprintf(
			"appointment must fall between %02d:00 and %02d:00 %s", v.Hours.Open, v.Hours.Close, v.Hours.Zone))
	}

	return domain.Appointment{
		ID:          d.ID,
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Location:    strings.TrimSpace(d.Location),
		Type:        strings.TrimSpace(d.Type),
		Start:       start,
		End:         end,
		CustomerID:  d.CustomerID,
		UserID:      d.UserID,
		ContactID:   contact.ID,
	}, nil
}

// CheckOverlap rejects cand when it intersects any appointment in existing
// other than the record carrying cand's own id.
func CheckOverlap(cand domain.Appointment, existing []domain.Appointment) error {
	for _, a := range existing {
		if cand.ID != 0 && a.ID == cand.ID {
			continue
		}
		if domain.Overlaps(cand.Range(), a.Range()) {
			return validationError(ReasonOverlappingAppointment, fmt.Sprintf(
				"overlaps appointment %d (%s - %s)", a.ID, a.Start.Format(DateTimeLayout), a.End.Format(DateTimeLayout)))
		}
	}
	return nil
}

func missingFields(d Draft) []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("title", d.Title)
	check("description", d.Description)
	check("location", d.Location)
	check("contact", d.Contact)
	check("type", d.Type)
	check("start", d.Start)
	check("end", d.End)
	if d.CustomerID == 0 {
		missing = append(missing, "customer_id")
	}
	if d.UserID == 0 {
		missing = append(missing, "user_id")
	}
	return missing
}
