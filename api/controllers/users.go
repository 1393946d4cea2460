package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storepulse/storepulse-backend/api/responses"
	"github.com/storepulse/storepulse-backend/api/validators"
	"github.com/storepulse/storepulse-backend/internal/users"
	pkgerrors "github.com/storepulse/storepulse-backend/pkg/errors"
	"github.com/storepulse/storepulse-backend/pkg/logger"
)

type createUserRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strongpw"`
	Address  string `json:"address" validate:"max=400"`
	Role     string `json:"role" validate:"required,oneof=user admin store_owner"`
}

// UsersList returns the filtered user listing. Admin only.
func UsersList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		filter := users.ListUsersFilter{
			Name:    validators.SanitizeString(r.URL.Query().Get("name"), maxFilterLen),
			Email:   validators.SanitizeString(r.URL.Query().Get("email"), maxFilterLen),
			Address: validators.SanitizeString(r.URL.Query().Get("address"), maxFilterLen),
			Role:    validators.SanitizeString(r.URL.Query().Get("role"), maxFilterLen),
		}

		rows, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// UserDetail loads one user by id. Admin only.
func UserDetail(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id"))
			return
		}

		dto, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// UserCreate provisions a user with an explicit role. Admin only.
func UserCreate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var body createUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), users.CreateUserInput{
			Name:     body.Name,
			Email:    body.Email,
			Password: body.Password,
			Address:  body.Address,
			Role:     body.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// StoreOwnersList lists store_owner users for owner assignment, with their
// rating aggregates and store counts. Admin only.
func StoreOwnersList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		filter := users.ListOwnersFilter{
			Name:    validators.SanitizeString(r.URL.Query().Get("name"), maxFilterLen),
			Email:   validators.SanitizeString(r.URL.Query().Get("email"), maxFilterLen),
			Address: validators.SanitizeString(r.URL.Query().Get("address"), maxFilterLen),
		}

		owners, err := svc.ListStoreOwners(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, owners)
	}
}

// DashboardStats reports platform totals. Admin only.
func DashboardStats(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}
