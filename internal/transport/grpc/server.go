package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/service/agenda"
	"github.com/sbrito346/school-project/internal/service/appointments"
	"github.com/sbrito346/school-project/internal/service/customers"
	"github.com/sbrito346/school-project/internal/service/reports"
	"github.com/sbrito346/school-project/internal/session"
)

type authenticator interface {
	Login(ctx context.Context, username, password string) (*session.Session, error)
}

type tokenIssuer interface {
	Issue(s *session.Session) (string, error)
}

type appointmentService interface {
	Submit(ctx context.Context, sess *session.Session, d appointments.Draft, mode appointments.Mode) (domain.Appointment, error)
	Delete(ctx context.Context, sess *session.Session, id int64) (domain.Appointment, error)
}

type customerService interface {
	Submit(ctx context.Context, sess *session.Session, d customers.Draft, mode customers.Mode) (domain.Customer, error)
	Delete(ctx context.Context, sess *session.Session, id int64) error
}

// catalog is the read side of the directory.
type catalog interface {
	Customers() []domain.Customer
	Customer(id int64) (domain.Customer, bool)
	CustomerAppointments(customerID int64) ([]domain.Appointment, bool)
	Appointments() []domain.Appointment
	Contact(id int64) (domain.Contact, bool)
	Division(id int64) (domain.Division, bool)
	Country(id int64) (domain.Country, bool)
	Countries() []domain.Country
	DivisionsByCountry(country string) []domain.Division
	Contacts() []domain.Contact
}

type Deps struct {
	Auth         authenticator
	Tokens       tokenIssuer
	Appointments appointmentService
	Customers    customerService
	Directory    catalog
	// UpcomingWindow is the lookahead for upcoming scans. Zero uses agenda.DefaultLookahead.
	UpcomingWindow time.Duration
	Now            func() time.Time
}

type Server struct {
	auth     authenticator
	tokens   tokenIssuer
	appts    appointmentService
	custs    customerService
	dir      catalog
	upcoming time.Duration
	now      func() time.Time
	log      *slog.Logger
}

var _ SchedulerServer = (*Server)(nil)

func NewServer(deps Deps, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		auth:     deps.Auth,
		tokens:   deps.Tokens,
		appts:    deps.Appointments,
		custs:    deps.Customers,
		dir:      deps.Directory,
		upcoming: deps.UpcomingWindow,
		now:      now,
		log:      log.With(slog.String("component", "grpc.scheduler")),
	}
}

func (s *Server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "Login"))

	username := stringField(req, "username")
	sess, err := s.auth.Login(ctx, username, stringField(req, "password"))
	if err != nil {
		return nil, toStatus(ctx, log, err)
	}
	token, err := s.tokens.Issue(sess)
	if err != nil {
		return nil, toStatus(ctx, log, err)
	}

	upcoming := agenda.ForUser(agenda.Upcoming(s.dir.Customers(), s.now(), s.upcoming), sess.User.ID)
	log.Info("login succeeded",
		slog.String("user", sess.User.Name),
		slog.String("session_id", sess.ID.String()),
		slog.Int("upcoming", len(upcoming)),
	)

	return respond(log, map[string]any{
		"token":      token,
		"session_id": sess.ID.String(),
		"user_id":    sess.User.ID,
		"user_name":  sess.User.Name,
		"time_zone":  sess.Location.String(),
		"upcoming":   s.appointmentList(upcoming, sess.Location),
	})
}

func (s *Server) SubmitAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "SubmitAppointment"))
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	mode, err := appointmentMode(stringField(req, "mode"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_mode"))
		return nil, err
	}
	d, err := appointmentDraft(req)
	if err != nil {
		log.Warn("invalid request", slog.Any("err", err))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	a, err := s.appts.Submit(ctx, sess, d, mode)
	if err != nil {
		return nil, toStatus(ctx, log, err)
	}
	log.Info("appointment committed",
		slog.String("mode", mode.String()),
		slog.Int64("appointment_id", a.ID),
		slog.Int64("customer_id", a.CustomerID),
		slog.String("user", sess.Actor()),
	)
	return respond(log, map[string]any{"appointment": s.appointmentValue(a, sess.Location)})
}

func (s *Server) DeleteAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "DeleteAppointment"))
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	id, err := int64Field(req, "appointment_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	removed, err := s.appts.Delete(ctx, sess, id)
	if err != nil {
		return nil, toStatus(ctx, log, err)
	}
	return respond(log, map[string]any{
		"appointment_id": removed.ID,
		"type":           removed.Type,
	})
}

func (s *Server) ListAppointments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListAppointments"))
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	customerID, err := int64Field(req, "customer_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var list []domain.Appointment
	if customerID != 0 {
		var ok bool
		list, ok = s.dir.CustomerAppointments(customerID)
		if !ok {
			return nil, status.Errorf(codes.NotFound, "customer %d not found", customerID)
		}
	} else {
		list = s.dir.Appointments()
	}

	switch filter := strings.ToLower(strings.TrimSpace(stringField(req, "filter"))); filter {
	case "", "all":
	case "week":
		list = agenda.InWeekOf(list, s.now(), sess.Location)
	case "month":
		list = agenda.InMonthOf(list, s.now(), sess.Location)
	default:
		log.Warn("invalid request", slog.String("reason", "bad_filter"), slog.String("filter", filter))
		return nil, status.Error(codes.InvalidArgument, "filter must be one of all, week, month")
	}

	log.Debug("appointments listed", slog.Int("count", len(list)), slog.Int64("customer_id", customerID))
	return respond(log, map[string]any{"appointments": s.appointmentList(list, sess.Location)})
}

func (s *Server) ListUpcoming(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListUpcoming"))
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	upcoming := agenda.Upcoming(s.dir.Customers(), s.now(), s.upcoming)
	return respond(log, map[string]any{"appointments": s.appointmentList(upcoming, sess.Location)})
}

func (s *Server) SubmitCustomer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "SubmitCustomer"))
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	var mode customers.Mode
	switch strings.ToLower(strings.TrimSpace(stringField(req, "mode"))) {
	case "", "create":
		mode = customers.Create
	case "edit":
		mode = customers.Edit
	default:
		return nil, status.Error(codes.InvalidArgument, "mode must be create or edit")
	}
	d, err := customerDraft(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	c, err := s.custs.Submit(ctx, sess, d, mode)
	if err != nil {
		return nil, toStatus(ctx, log, err)
	}
	log.Info("customer committed", slog.Int64("customer_id", c.ID), slog.String("user", sess.Actor()))
	return respond(log, map[string]any{"customer": s.customerValue(c, sess.Location)})
}

func (s *Server) DeleteCustomer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "DeleteCustomer"))
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	id, err := int64Field(req, "customer_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.custs.Delete(ctx, sess, id); err != nil {
		return nil, toStatus(ctx, log, err)
	}
	return respond(log, map[string]any{"customer_id": id})
}

func (s *Server) ListCustomers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListCustomers"))
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	all := s.dir.Customers()
	out := make([]any, 0, len(all))
	for _, c := range all {
		out = append(out, s.customerValue(c, sess.Location))
	}
	return respond(log, map[string]any{"customers": out})
}

func (s *Server) Report(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "Report"))
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	appts := s.dir.Appointments()

	kind := strings.ToLower(strings.TrimSpace(stringField(req, "kind")))
	var rows []any
	switch kind {
	case "type_month":
		for _, r := range reports.ByTypeAndMonth(appts, sess.Location) {
			rows = append(rows, map[string]any{"type": r.Type, "month": r.Month.String(), "count": r.Count})
		}
	case "customer_type":
		res, err := reports.ByCustomerAndType(appts, s.dir)
		if err != nil {
			return nil, toStatus(ctx, log, err)
		}
		for _, r := range res {
			rows = append(rows, map[string]any{"customer_id": r.CustomerID, "customer": r.CustomerName, "type": r.Type, "count": r.Count})
		}
	case "contact":
		res, err := reports.ByContact(appts, s.dir)
		if err != nil {
			return nil, toStatus(ctx, log, err)
		}
		for _, r := range res {
			rows = append(rows, map[string]any{"contact": r.ContactName, "appointments": s.appointmentList(r.Appointments, sess.Location)})
		}
	default:
		log.Warn("invalid request", slog.String("reason", "bad_kind"), slog.String("kind", kind))
		return nil, status.Error(codes.InvalidArgument, "kind must be one of type_month, customer_type, contact")
	}
	if rows == nil {
		rows = []any{}
	}
	return respond(log, map[string]any{"kind": kind, "rows": rows})
}

// ListReference returns the lookup data a client needs to fill in drafts:
// countries with their divisions, and contacts.
func (s *Server) ListReference(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListReference"))
	if _, err := requireSession(ctx); err != nil {
		return nil, err
	}

	countries := make([]any, 0)
	for _, c := range s.dir.Countries() {
		divisions := make([]any, 0)
		for _, d := range s.dir.DivisionsByCountry(c.Name) {
			divisions = append(divisions, map[string]any{"division_id": d.ID, "name": d.Name})
		}
		countries = append(countries, map[string]any{"country_id": c.ID, "name": c.Name, "divisions": divisions})
	}
	contacts := make([]any, 0)
	for _, c := range s.dir.Contacts() {
		contacts = append(contacts, map[string]any{"contact_id": c.ID, "name": c.Name, "email": c.Email})
	}
	return respond(log, map[string]any{"countries": countries, "contacts": contacts})
}

func appointmentMode(raw string) (appointments.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "create":
		return appointments.Create, nil
	case "edit":
		return appointments.Edit, nil
	}
	return 0, status.Error(codes.InvalidArgument, "mode must be create or edit")
}

func requireSession(ctx context.Context) (*session.Session, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "session required")
	}
	return sess, nil
}

func respond(log *slog.Logger, m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		log.Error("response encoding failed", slog.Any("err", err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}
