package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinixsphere/clinic-backend/internal/auth"
	"github.com/clinixsphere/clinic-backend/internal/user"
)

func registerHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		u, token, err := users.Register(r.Context(), user.RegisterInput{
			Name:           req.Name,
			Email:          req.Email,
			Password:       req.Password,
			Role:           auth.Role(req.Role),
			Specialization: req.Specialization,
			Phone:          req.Phone,
		})
		if err != nil {
			handleUserError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AuthResponse{
			Token: token,
			User:  toUserResponse(u),
		})
	}
}

func loginHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		u, token, err := users.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			handleUserError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AuthResponse{
			Token: token,
			User:  toUserResponse(u),
		})
	}
}

func listDoctorsHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := users.ListActiveDoctors(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not list doctors")
			return
		}

		resp := make([]UserResponse, 0, len(doctors))
		for i := range doctors {
			resp = append(resp, toUserResponse(&doctors[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, user.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, user.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
