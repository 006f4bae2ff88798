package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "scheduler.v1.Scheduler"

const (
	LoginMethod             = "/" + ServiceName + "/Login"
	SubmitAppointmentMethod = "/" + ServiceName + "/SubmitAppointment"
	DeleteAppointmentMethod = "/" + ServiceName + "/DeleteAppointment"
	ListAppointmentsMethod  = "/" + ServiceName + "/ListAppointments"
	ListUpcomingMethod      = "/" + ServiceName + "/ListUpcoming"
	SubmitCustomerMethod    = "/" + ServiceName + "/SubmitCustomer"
	DeleteCustomerMethod    = "/" + ServiceName + "/DeleteCustomer"
	ListCustomersMethod     = "/" + ServiceName + "/ListCustomers"
	ReportMethod            = "/" + ServiceName + "/Report"
	ListReferenceMethod     = "/" + ServiceName + "/ListReference"
)

// SchedulerServer is the service contract. Every request and response is a
// google.protobuf.Struct so the wire format needs no generated code.
type SchedulerServer interface {
	Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SubmitAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListAppointments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListUpcoming(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SubmitCustomer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteCustomer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCustomers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Report(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListReference(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv SchedulerServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unary(name, fullMethod string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SchedulerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SchedulerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", LoginMethod, SchedulerServer.Login),
		unary("SubmitAppointment", SubmitAppointmentMethod, SchedulerServer.SubmitAppointment),
		unary("DeleteAppointment", DeleteAppointmentMethod, SchedulerServer.DeleteAppointment),
		unary("ListAppointments", ListAppointmentsMethod, SchedulerServer.ListAppointments),
		unary("ListUpcoming", ListUpcomingMethod, SchedulerServer.ListUpcoming),
		unary("SubmitCustomer", SubmitCustomerMethod, SchedulerServer.SubmitCustomer),
		unary("DeleteCustomer", DeleteCustomerMethod, SchedulerServer.DeleteCustomer),
		unary("ListCustomers", ListCustomersMethod, SchedulerServer.ListCustomers),
		unary("Report", ReportMethod, SchedulerServer.Report),
		unary("ListReference", ListReferenceMethod, SchedulerServer.ListReference),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scheduler/v1/scheduler.proto",
}

func RegisterSchedulerServer(s grpc.ServiceRegistrar, srv SchedulerServer) {
	s.RegisterService(&ServiceDesc, srv)
}
