package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storepulse/storepulse-backend/api/middleware"
	"github.com/storepulse/storepulse-backend/api/responses"
	"github.com/storepulse/storepulse-backend/api/validators"
	"github.com/storepulse/storepulse-backend/internal/stores"
	pkgerrors "github.com/storepulse/storepulse-backend/pkg/errors"
	"github.com/storepulse/storepulse-backend/pkg/logger"
)

const maxFilterLen = 400

type createStoreRequest struct {
	Name    string `json:"name" validate:"required,min=3,max=60"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"max=400"`
	OwnerID string `json:"owner_id" validate:"required,uuid"`
}

// StoresList returns all stores with averages and the caller's own ratings.
func StoresList(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stores service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		filter := stores.ListStoresFilter{
			Name:    validators.SanitizeString(r.URL.Query().Get("name"), maxFilterLen),
			Address: validators.SanitizeString(r.URL.Query().Get("address"), maxFilterLen),
		}

		items, err := svc.List(r.Context(), userID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

// StoreCreate registers a new store for an owner. Admin only.
func StoreCreate(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stores service unavailable"))
			return
		}

		var body createStoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ownerID, err := uuid.Parse(body.OwnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid owner id"))
			return
		}

		dto, err := svc.Create(r.Context(), stores.CreateStoreDTO{
			Name:    body.Name,
			Email:   body.Email,
			Address: body.Address,
			OwnerID: ownerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// MyStores lists the caller's stores with aggregates. Store owners only.
func MyStores(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stores service unavailable"))
			return
		}

		ownerID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		owned, err := svc.ListOwned(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, owned)
	}
}

// MyStoreDetail shows one owned store with its raters. Store owners only.
func MyStoreDetail(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stores service unavailable"))
			return
		}

		ownerID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid store id"))
			return
		}

		owned, err := svc.GetOwned(r.Context(), ownerID, storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, owned)
	}
}
