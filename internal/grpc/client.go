package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"semaphore/learning/internal/model"
	"semaphore/learning/internal/progress"
)

// Dial connects to an enrollment service, attaching serviceToken to every call.
func Dial(ctx context.Context, addr, serviceToken string, timeout time.Duration, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if serviceToken == "" {
		return nil, errors.New("service auth token required")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(serviceAuthUnaryClientInterceptor(serviceToken)),
	}, opts...)
	return grpc.DialContext(ctx, addr, opts...)
}

// EnrollmentClient calls a remote EnrollmentService and maps status codes
// back onto the progress package errors.
type EnrollmentClient struct {
	cc grpc.ClientConnInterface
}

func NewEnrollmentClient(cc grpc.ClientConnInterface) *EnrollmentClient {
	return &EnrollmentClient{cc: cc}
}

func (c *EnrollmentClient) Enroll(ctx context.Context, userID, courseID string) error {
	_, err := c.invoke(ctx, "Enroll", courseFields(userID, courseID))
	return err
}

func (c *EnrollmentClient) UpdateProgress(ctx context.Context, userID, courseID string, update progress.ProgressUpdate) (model.Enrollment, error) {
	fields := courseFields(userID, courseID)
	if update.CompletedModules != nil {
		modules := make([]interface{}, 0, len(*update.CompletedModules))
		for _, module := range *update.CompletedModules {
			modules = append(modules, module)
		}
		fields["completedModules"] = modules
	}
	if update.CurrentModule != nil {
		fields["currentModule"] = *update.CurrentModule
	}
	if update.TimeSpent != nil {
		fields["timeSpent"] = *update.TimeSpent
	}

	out, err := c.invoke(ctx, "UpdateProgress", fields)
	if err != nil {
		return model.Enrollment{}, err
	}
	return enrollmentFromStruct(courseID, out.GetFields()["progress"].GetStructValue())
}

func (c *EnrollmentClient) GetProgress(ctx context.Context, userID, courseID string) (model.Enrollment, error) {
	out, err := c.invoke(ctx, "GetProgress", courseFields(userID, courseID))
	if err != nil {
		return model.Enrollment{}, err
	}
	return enrollmentFromStruct(courseID, out)
}

func (c *EnrollmentClient) RemoveEnrollment(ctx context.Context, userID, courseID string) error {
	_, err := c.invoke(ctx, "RemoveEnrollment", courseFields(userID, courseID))
	return err
}

func (c *EnrollmentClient) invoke(ctx context.Context, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+EnrollmentServiceName+"/"+method, in, out); err != nil {
		return nil, fromStatus(err)
	}
	return out, nil
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		for _, known := range []error{progress.ErrUserNotFound, progress.ErrNotEnrolled, progress.ErrCourseNotFound} {
			if st.Message() == known.Error() {
				return known
			}
		}
	case codes.AlreadyExists:
		return progress.ErrAlreadyEnrolled
	}
	return err
}

func courseFields(userID, courseID string) map[string]interface{} {
	return map[string]interface{}{"userId": userID, "courseId": courseID}
}

func enrollmentFromStruct(courseID string, in *structpb.Struct) (model.Enrollment, error) {
	if in == nil {
		return model.Enrollment{}, errors.New("empty progress response")
	}
	fields := in.GetFields()
	record := model.Enrollment{
		Course:           courseID,
		Completed:        int(fields["completed"].GetNumberValue()),
		CompletedModules: []int{},
		CurrentModule:    int(fields["currentModule"].GetNumberValue()),
		TimeSpent:        int(fields["timeSpent"].GetNumberValue()),
	}
	for _, item := range fields["completedModules"].GetListValue().GetValues() {
		record.CompletedModules = append(record.CompletedModules, int(item.GetNumberValue()))
	}
	if raw := fields["lastAccessed"].GetStringValue(); raw != "" {
		lastAccessed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return model.Enrollment{}, fmt.Errorf("parse lastAccessed: %w", err)
		}
		record.LastAccessed = lastAccessed
	}
	return record, nil
}
