package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"semaphore/learning/internal/catalog"
	"semaphore/learning/internal/logger"
	"semaphore/learning/internal/model"
	"semaphore/learning/internal/progress"
	"semaphore/learning/internal/repository"
)

const testServiceToken = "test-service-token"

func startServer(t *testing.T, courses catalog.Catalog) (*bufconn.Listener, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	log := logger.NewNop()
	tracker := progress.NewTracker(store, courses, progress.Options{}, log)

	interceptor, err := NewServiceAuthUnaryInterceptor(testServiceToken)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	server := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	RegisterEnrollmentServiceServer(server, NewEnrollmentServer(tracker, log))

	listener := bufconn.Listen(1 << 20)
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)
	return listener, store
}

func dialBuf(t *testing.T, listener *bufconn.Listener, token string) *grpc.ClientConn {
	t.Helper()
	conn, err := Dial(context.Background(), "passthrough:///bufnet", token, time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func seedUser(t *testing.T, store *repository.MemoryStore, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := store.CreateUser(context.Background(), model.User{
		ID:              id,
		Name:            "Test",
		Email:           id + "@example.local",
		EnrolledCourses: []model.Enrollment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestEnrollmentRoundTrip(t *testing.T) {
	listener, store := startServer(t, catalog.Static{"go-101": 6})
	seedUser(t, store, "u1")
	client := NewEnrollmentClient(dialBuf(t, listener, testServiceToken))
	ctx := context.Background()

	if err := client.Enroll(ctx, "u1", "go-101"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if err := client.Enroll(ctx, "u1", "go-101"); !errors.Is(err, progress.ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}

	modules := []int{1, 2, 3}
	current := 4
	record, err := client.UpdateProgress(ctx, "u1", "go-101", progress.ProgressUpdate{
		CompletedModules: &modules,
		CurrentModule:    &current,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if record.Completed != 50 || record.CurrentModule != 4 || len(record.CompletedModules) != 3 {
		t.Fatalf("unexpected record %+v", record)
	}

	spent := 30
	if _, err := client.UpdateProgress(ctx, "u1", "go-101", progress.ProgressUpdate{TimeSpent: &spent}); err != nil {
		t.Fatalf("update time: %v", err)
	}

	got, err := client.GetProgress(ctx, "u1", "go-101")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Completed != 50 || got.TimeSpent != 30 || got.CurrentModule != 4 || got.LastAccessed.IsZero() {
		t.Fatalf("unexpected progress %+v", got)
	}

	if err := client.RemoveEnrollment(ctx, "u1", "go-101"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := client.GetProgress(ctx, "u1", "go-101"); !errors.Is(err, progress.ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
	if err := client.Enroll(ctx, "missing", "go-101"); !errors.Is(err, progress.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestEnrollmentRejectsInvalidArguments(t *testing.T) {
	listener, store := startServer(t, catalog.Static{})
	seedUser(t, store, "u1")
	conn := dialBuf(t, listener, testServiceToken)
	ctx := context.Background()

	cases := []map[string]interface{}{
		{"userId": "u1"},
		{"userId": "u1", "courseId": "c1", "timeSpent": -1},
		{"userId": "u1", "courseId": "c1", "currentModule": 1.5},
		{"userId": "u1", "courseId": "c1", "completedModules": "1,2"},
	}
	for _, fields := range cases {
		in, err := structpb.NewStruct(fields)
		if err != nil {
			t.Fatalf("struct: %v", err)
		}
		err = conn.Invoke(ctx, "/"+EnrollmentServiceName+"/UpdateProgress", in, new(structpb.Struct))
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("fields %v: expected InvalidArgument, got %v", fields, err)
		}
	}
}

func TestServiceAuth(t *testing.T) {
	listener, store := startServer(t, catalog.Static{})
	seedUser(t, store, "u1")
	ctx := context.Background()

	client := NewEnrollmentClient(dialBuf(t, listener, "wrong-token"))
	if err := client.Enroll(ctx, "u1", "c1"); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}

	conn, err := grpc.DialContext(ctx, "passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := NewEnrollmentClient(conn).Enroll(ctx, "u1", "c1"); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	if _, err := NewServiceAuthUnaryInterceptor(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if _, err := Dial(ctx, "passthrough:///bufnet", "", time.Second); err == nil {
		t.Fatalf("expected error for empty client token")
	}
}
