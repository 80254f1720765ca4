package http

import (
	"errors"
	"net/http"
	"time"

	"semaphore/learning/internal/progress"
)

type courseRequest struct {
	UserID   string `json:"userId" validate:"required"`
	CourseID string `json:"courseId" validate:"required"`
}

type updateProgressRequest struct {
	UserID           string `json:"userId" validate:"required"`
	CourseID         string `json:"courseId" validate:"required"`
	CompletedModules *[]int `json:"completedModules,omitempty" validate:"omitempty,dive,min=0"`
	CurrentModule    *int   `json:"currentModule,omitempty" validate:"omitempty,min=0"`
	TimeSpent        *int   `json:"timeSpent,omitempty" validate:"omitempty,min=0"`
}

type progressSummary struct {
	Completed        int   `json:"completed"`
	CompletedModules []int `json:"completedModules"`
	CurrentModule    int   `json:"currentModule"`
	TimeSpent        int   `json:"timeSpent"`
}

type updateProgressResponse struct {
	Message  string          `json:"message"`
	Progress progressSummary `json:"progress"`
}

type progressResponse struct {
	progressSummary
	LastAccessed time.Time `json:"lastAccessed"`
}

const missingCourseFields = "userId and courseId are required"

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if !s.bind(w, r, &req, missingCourseFields) {
		return
	}
	if err := s.tracker.Enroll(r.Context(), req.UserID, req.CourseID); err != nil {
		s.writeProgressError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User enrolled successfully"})
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req updateProgressRequest
	if !s.bind(w, r, &req, missingCourseFields) {
		return
	}

	record, err := s.tracker.UpdateProgress(r.Context(), req.UserID, req.CourseID, progress.ProgressUpdate{
		CompletedModules: req.CompletedModules,
		CurrentModule:    req.CurrentModule,
		TimeSpent:        req.TimeSpent,
	})
	if err != nil {
		s.writeProgressError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updateProgressResponse{
		Message: "Progress updated successfully",
		Progress: progressSummary{
			Completed:        record.Completed,
			CompletedModules: nonNil(record.CompletedModules),
			CurrentModule:    record.CurrentModule,
			TimeSpent:        record.TimeSpent,
		},
	})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if !s.bind(w, r, &req, missingCourseFields) {
		return
	}

	record, err := s.tracker.GetProgress(r.Context(), req.UserID, req.CourseID)
	if err != nil {
		s.writeProgressError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, progressResponse{
		progressSummary: progressSummary{
			Completed:        record.Completed,
			CompletedModules: nonNil(record.CompletedModules),
			CurrentModule:    record.CurrentModule,
			TimeSpent:        record.TimeSpent,
		},
		LastAccessed: record.LastAccessed,
	})
}

func (s *Server) handleRemoveEnrollment(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if !s.bind(w, r, &req, missingCourseFields) {
		return
	}
	if err := s.tracker.RemoveEnrollment(r.Context(), req.UserID, req.CourseID); err != nil {
		s.writeProgressError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Enrollment removed successfully"})
}

func (s *Server) writeProgressError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "User not found")
	case errors.Is(err, progress.ErrAlreadyEnrolled):
		writeError(w, http.StatusBadRequest, "already_enrolled", "User is already enrolled in this course")
	case errors.Is(err, progress.ErrNotEnrolled):
		writeError(w, http.StatusNotFound, "not_enrolled", "User is not enrolled in the specified course")
	case errors.Is(err, progress.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, "course_not_found", "Course not found")
	default:
		s.log.Error("Progress operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func nonNil(values []int) []int {
	if values == nil {
		return []int{}
	}
	return values
}
