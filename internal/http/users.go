package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"semaphore/learning/internal/directory"
	"semaphore/learning/internal/model"
)

type registerRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	Grade    *string `json:"grade,omitempty"`
	Gender   *string `json:"gender,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type getUserRequest struct {
	ID string `json:"id" validate:"required"`
}

type userSummary struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	Grade           *string            `json:"grade,omitempty"`
	Gender          *string            `json:"gender,omitempty"`
	EnrolledCourses []model.Enrollment `json:"enrolledCourses"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type authResponse struct {
	Message     string      `json:"message"`
	User        userSummary `json:"user"`
	AccessToken string      `json:"accessToken,omitempty"`
	Success     bool        `json:"success"`
}

type userResponse struct {
	User userSummary `json:"user"`
}

type userListResponse struct {
	User []userSummary `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.bind(w, r, &req, "All fields are required") {
		return
	}

	user, err := s.directory.Register(r.Context(), directory.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Grade:    req.Grade,
		Gender:   req.Gender,
	})
	if err != nil {
		s.writeDirectoryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message: "User registered successfully",
		User:    mapUser(user),
		Success: true,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.bind(w, r, &req, "Email and password are required") {
		return
	}

	user, token, err := s.directory.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeDirectoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message:     "Login successful",
		User:        mapUser(user),
		AccessToken: token,
		Success:     true,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	var req getUserRequest
	if !s.bind(w, r, &req, "id is required") {
		return
	}

	user, err := s.directory.Get(r.Context(), req.ID)
	if err != nil {
		s.writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: mapUser(user)})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token", "Missing bearer token")
		return
	}

	user, err := s.directory.Get(r.Context(), claims.UserID)
	if err != nil {
		s.writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: mapUser(user)})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	users, err := s.directory.List(r.Context(), limit)
	if err != nil {
		s.log.Error("List users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	summaries := make([]userSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, mapUser(user))
	}
	writeJSON(w, http.StatusOK, userListResponse{User: summaries})
}

func (s *Server) writeDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "user_exists", "User already exists")
	case errors.Is(err, directory.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
	case errors.Is(err, directory.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "User not found")
	default:
		s.log.Error("Directory operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func mapUser(user model.User) userSummary {
	enrollments := user.EnrolledCourses
	if enrollments == nil {
		enrollments = []model.Enrollment{}
	}
	return userSummary{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Grade:           user.Grade,
		Gender:          user.Gender,
		EnrolledCourses: enrollments,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}
