package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/sbrito346/school-project/internal/directory"
	"github.com/sbrito346/school-project/internal/service/appointments"
	"github.com/sbrito346/school-project/internal/service/customers"
	"github.com/sbrito346/school-project/internal/service/reports"
	"github.com/sbrito346/school-project/internal/session"
	"github.com/sbrito346/school-project/internal/store"
)

// ReasonTrailer carries the typed rejection reason alongside an
// InvalidArgument or FailedPrecondition status.
const ReasonTrailer = "x-rejection-reason"

// toStatus maps a service error onto a gRPC status and logs it at the level
// its class deserves.
func toStatus(ctx context.Context, log *slog.Logger, err error) error {
	var (
		apptErr *appointments.ValidationError
		custErr *customers.ValidationError
		fault   *directory.ConsistencyFault
		persist *directory.PersistenceError
		stErr   interface{ GRPCStatus() *status.Status }
	)

	switch {
	case errors.As(err, &apptErr):
		log.Info("appointment rejected", slog.String("reason", string(apptErr.Reason)), slog.Any("err", err))
		setReason(ctx, string(apptErr.Reason))
		code := codes.InvalidArgument
		if apptErr.Reason == appointments.ReasonOverlappingAppointment || apptErr.Reason == appointments.ReasonOutsideBusinessHours {
			code = codes.FailedPrecondition
		}
		return status.Error(code, apptErr.Error())
	case errors.As(err, &custErr):
		log.Info("customer rejected", slog.String("reason", string(custErr.Reason)), slog.Any("err", err))
		setReason(ctx, string(custErr.Reason))
		return status.Error(codes.InvalidArgument, custErr.Error())
	case errors.Is(err, session.ErrMissingCredentials):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, session.ErrInvalidCredentials), errors.Is(err, session.ErrBadToken):
		log.Info("unauthenticated", slog.Any("err", err))
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, reports.ErrUnknownCustomer), errors.Is(err, reports.ErrUnknownContact):
		log.Error("report failed", slog.Any("err", err))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &fault), errors.Is(err, directory.ErrQuarantined):
		log.Error("consistency fault", slog.Any("err", err))
		return status.Error(codes.Internal, "internal error")
	case errors.Is(err, store.ErrNotFound) && !errors.As(err, &persist):
		log.Info("not found", slog.Any("err", err))
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		log.Error("store unavailable", slog.Any("err", err))
		return status.Error(codes.Unavailable, "store unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("deadline exceeded", slog.Any("err", err))
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.As(err, &stErr):
		return err
	default:
		log.Error("request failed", slog.Any("err", err))
		return status.Error(codes.Internal, "internal error")
	}
}

func setReason(ctx context.Context, reason string) {
	// Fails harmlessly when ctx carries no server transport stream.
	_ = grpc.SetTrailer(ctx, metadata.Pairs(ReasonTrailer, reason))
}
