// Package progress owns the enrollment state machine for a user's courses:
// enroll, update progress, read progress and unenroll. Records live inside the
// user document, so every mutation is a whole-user read-modify-write.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"semaphore/learning/internal/catalog"
	"semaphore/learning/internal/logger"
	"semaphore/learning/internal/model"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrCourseNotFound  = catalog.ErrCourseNotFound
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
	ErrNotEnrolled     = errors.New("user is not enrolled in this course")
)

type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	SaveUser(ctx context.Context, user model.User) error
}

type Options struct {
	// VerifyCourseOnEnroll rejects enrollment in courses the catalog does
	// not know. Off by default: enrollment stores any course id.
	VerifyCourseOnEnroll bool
	Now                  func() time.Time
}

type Tracker struct {
	users        UserStore
	catalog      catalog.Catalog
	verifyCourse bool
	now          func() time.Time
	log          *logger.Logger
}

// ProgressUpdate is a partial update; nil fields keep their stored value.
type ProgressUpdate struct {
	CompletedModules *[]int
	CurrentModule    *int
	TimeSpent        *int
}

func NewTracker(users UserStore, courses catalog.Catalog, opts Options, log *logger.Logger) *Tracker {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Tracker{
		users:        users,
		catalog:      courses,
		verifyCourse: opts.VerifyCourseOnEnroll,
		now:          now,
		log:          log.With("component", "progress"),
	}
}

func (t *Tracker) Enroll(ctx context.Context, userID, courseID string) error {
	user, err := t.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if t.verifyCourse {
		if _, err := t.catalog.ModuleCount(ctx, courseID); err != nil {
			if errors.Is(err, catalog.ErrCourseNotFound) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("verify course: %w", err)
		}
	}
	if indexOf(user.EnrolledCourses, courseID) >= 0 {
		return ErrAlreadyEnrolled
	}

	now := t.now()
	user.EnrolledCourses = append(cloneEnrollments(user.EnrolledCourses), model.Enrollment{
		Course:           courseID,
		Completed:        0,
		CompletedModules: []int{},
		CurrentModule:    0,
		TimeSpent:        0,
		LastAccessed:     now,
	})
	user.UpdatedAt = now
	if err := t.save(ctx, user); err != nil {
		return err
	}
	t.log.Debug("User enrolled", "user_id", userID, "course_id", courseID)
	return nil
}

func (t *Tracker) UpdateProgress(ctx context.Context, userID, courseID string, update ProgressUpdate) (model.Enrollment, error) {
	user, err := t.loadUser(ctx, userID)
	if err != nil {
		return model.Enrollment{}, err
	}
	idx := indexOf(user.EnrolledCourses, courseID)
	if idx < 0 {
		return model.Enrollment{}, ErrNotEnrolled
	}

	enrollments := cloneEnrollments(user.EnrolledCourses)
	record := enrollments[idx]

	if update.CompletedModules != nil {
		modules := make([]int, len(*update.CompletedModules))
		copy(modules, *update.CompletedModules)
		record.CompletedModules = modules
		if len(modules) == 0 {
			record.Completed = 0
		} else if completed, ok := t.completion(ctx, courseID, len(modules)); ok {
			record.Completed = completed
		}
	}
	if update.CurrentModule != nil {
		record.CurrentModule = *update.CurrentModule
	}
	if update.TimeSpent != nil {
		record.TimeSpent = *update.TimeSpent
	}
	now := t.now()
	record.LastAccessed = now
	enrollments[idx] = record

	user.EnrolledCourses = enrollments
	user.UpdatedAt = now
	if err := t.save(ctx, user); err != nil {
		return model.Enrollment{}, err
	}
	return record.Clone(), nil
}

func (t *Tracker) GetProgress(ctx context.Context, userID, courseID string) (model.Enrollment, error) {
	user, err := t.loadUser(ctx, userID)
	if err != nil {
		return model.Enrollment{}, err
	}
	idx := indexOf(user.EnrolledCourses, courseID)
	if idx < 0 {
		return model.Enrollment{}, ErrNotEnrolled
	}
	record := user.EnrolledCourses[idx].Clone()
	if record.CompletedModules == nil {
		record.CompletedModules = []int{}
	}
	return record, nil
}

func (t *Tracker) RemoveEnrollment(ctx context.Context, userID, courseID string) error {
	user, err := t.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	idx := indexOf(user.EnrolledCourses, courseID)
	if idx < 0 {
		return ErrNotEnrolled
	}

	remaining := make([]model.Enrollment, 0, len(user.EnrolledCourses)-1)
	for i, enrollment := range user.EnrolledCourses {
		if i != idx {
			remaining = append(remaining, enrollment.Clone())
		}
	}
	user.EnrolledCourses = remaining
	user.UpdatedAt = t.now()
	if err := t.save(ctx, user); err != nil {
		return err
	}
	t.log.Debug("Enrollment removed", "user_id", userID, "course_id", courseID)
	return nil
}

// completion returns the rounded completion percentage for done modules, or
// false when the catalog cannot provide a usable module count.
func (t *Tracker) completion(ctx context.Context, courseID string, done int) (int, bool) {
	total, err := t.catalog.ModuleCount(ctx, courseID)
	if err != nil {
		t.log.Warn("Skipping completion recompute", "course_id", courseID, "error", err)
		return 0, false
	}
	if total <= 0 {
		t.log.Warn("Skipping completion recompute for course without modules", "course_id", courseID)
		return 0, false
	}
	return Percentage(done, total), true
}

// Percentage is round(100*done/total) clamped to [0,100].
func Percentage(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(done) / float64(total)))
	if pct > 100 {
		return 100
	}
	return pct
}

func (t *Tracker) loadUser(ctx context.Context, userID string) (model.User, error) {
	user, err := t.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (t *Tracker) save(ctx context.Context, user model.User) error {
	if err := t.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ErrUserNotFound
		}
		t.log.Error("Failed to persist user enrollments", "user_id", user.ID, "error", err)
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func indexOf(enrollments []model.Enrollment, courseID string) int {
	for i, enrollment := range enrollments {
		if enrollment.Course == courseID {
			return i
		}
	}
	return -1
}

func cloneEnrollments(enrollments []model.Enrollment) []model.Enrollment {
	out := make([]model.Enrollment, len(enrollments), len(enrollments)+1)
	for i, enrollment := range enrollments {
		out[i] = enrollment.Clone()
	}
	return out
}
