package grpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"semaphore/learning/internal/logger"
	"semaphore/learning/internal/model"
	"semaphore/learning/internal/progress"
)

const EnrollmentServiceName = "learning.v1.EnrollmentService"

// EnrollmentServiceServer exposes the progress tracker to other services.
// Messages are google.protobuf.Struct documents using the same field names as
// the HTTP API.
type EnrollmentServiceServer interface {
	Enroll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateProgress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetProgress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveEnrollment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var EnrollmentServiceDesc = grpc.ServiceDesc{
	ServiceName: EnrollmentServiceName,
	HandlerType: (*EnrollmentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Enroll", EnrollmentServiceServer.Enroll),
		unaryMethod("UpdateProgress", EnrollmentServiceServer.UpdateProgress),
		unaryMethod("GetProgress", EnrollmentServiceServer.GetProgress),
		unaryMethod("RemoveEnrollment", EnrollmentServiceServer.RemoveEnrollment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "learning/v1/enrollment.proto",
}

func RegisterEnrollmentServiceServer(s grpc.ServiceRegistrar, srv EnrollmentServiceServer) {
	s.RegisterService(&EnrollmentServiceDesc, srv)
}

type structCall func(EnrollmentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call structCall) grpc.MethodDesc {
	fullMethod := "/" + EnrollmentServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(EnrollmentServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type EnrollmentServer struct {
	tracker *progress.Tracker
	log     *logger.Logger
}

func NewEnrollmentServer(tracker *progress.Tracker, log *logger.Logger) *EnrollmentServer {
	return &EnrollmentServer{tracker: tracker, log: log.With("component", "grpc")}
}

func (s *EnrollmentServer) Enroll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, courseID, err := courseKey(req)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Enroll(ctx, userID, courseID); err != nil {
		return nil, s.toStatus(err)
	}
	return messageStruct("User enrolled successfully")
}

func (s *EnrollmentServer) UpdateProgress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, courseID, err := courseKey(req)
	if err != nil {
		return nil, err
	}
	update, err := progressUpdate(req)
	if err != nil {
		return nil, err
	}
	record, err := s.tracker.UpdateProgress(ctx, userID, courseID, update)
	if err != nil {
		return nil, s.toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]interface{}{
		"message":  "Progress updated successfully",
		"progress": enrollmentFields(record),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode failed")
	}
	return out, nil
}

func (s *EnrollmentServer) GetProgress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, courseID, err := courseKey(req)
	if err != nil {
		return nil, err
	}
	record, err := s.tracker.GetProgress(ctx, userID, courseID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	fields := enrollmentFields(record)
	fields["lastAccessed"] = record.LastAccessed.UTC().Format(time.RFC3339Nano)
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode failed")
	}
	return out, nil
}

func (s *EnrollmentServer) RemoveEnrollment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, courseID, err := courseKey(req)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.RemoveEnrollment(ctx, userID, courseID); err != nil {
		return nil, s.toStatus(err)
	}
	return messageStruct("Enrollment removed successfully")
}

func (s *EnrollmentServer) toStatus(err error) error {
	switch {
	case errors.Is(err, progress.ErrUserNotFound),
		errors.Is(err, progress.ErrNotEnrolled),
		errors.Is(err, progress.ErrCourseNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, progress.ErrAlreadyEnrolled):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		s.log.Error("Enrollment RPC failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func courseKey(req *structpb.Struct) (string, string, error) {
	fields := req.GetFields()
	userID := fields["userId"].GetStringValue()
	courseID := fields["courseId"].GetStringValue()
	if userID == "" || courseID == "" {
		return "", "", status.Error(codes.InvalidArgument, "userId and courseId are required")
	}
	return userID, courseID, nil
}

func progressUpdate(req *structpb.Struct) (progress.ProgressUpdate, error) {
	fields := req.GetFields()
	var update progress.ProgressUpdate

	if value, ok := fields["completedModules"]; ok {
		list := value.GetListValue()
		if list == nil {
			return update, status.Error(codes.InvalidArgument, "completedModules must be a list")
		}
		modules := make([]int, 0, len(list.GetValues()))
		for _, item := range list.GetValues() {
			module, err := wholeNumber("completedModules", item)
			if err != nil {
				return update, err
			}
			modules = append(modules, module)
		}
		update.CompletedModules = &modules
	}
	if value, ok := fields["currentModule"]; ok {
		module, err := wholeNumber("currentModule", value)
		if err != nil {
			return update, err
		}
		update.CurrentModule = &module
	}
	if value, ok := fields["timeSpent"]; ok {
		spent, err := wholeNumber("timeSpent", value)
		if err != nil {
			return update, err
		}
		update.TimeSpent = &spent
	}
	return update, nil
}

func wholeNumber(field string, value *structpb.Value) (int, error) {
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Error(codes.InvalidArgument, field+" must be a number")
	}
	n := number.NumberValue
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, status.Error(codes.InvalidArgument, field+" must be a non-negative integer")
	}
	return int(n), nil
}

func enrollmentFields(record model.Enrollment) map[string]interface{} {
	modules := make([]interface{}, 0, len(record.CompletedModules))
	for _, module := range record.CompletedModules {
		modules = append(modules, module)
	}
	return map[string]interface{}{
		"completed":        record.Completed,
		"completedModules": modules,
		"currentModule":    record.CurrentModule,
		"timeSpent":        record.TimeSpent,
	}
}

func messageStruct(message string) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]interface{}{"message": message})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return out, nil
}
