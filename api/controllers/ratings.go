package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storepulse/storepulse-backend/api/middleware"
	"github.com/storepulse/storepulse-backend/api/responses"
	"github.com/storepulse/storepulse-backend/api/validators"
	"github.com/storepulse/storepulse-backend/internal/ratings"
	pkgerrors "github.com/storepulse/storepulse-backend/pkg/errors"
	"github.com/storepulse/storepulse-backend/pkg/logger"
)

type submitRatingRequest struct {
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}

// SubmitRating records or overwrites the caller's score for a store.
func SubmitRating(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ratings service unavailable"))
			return
		}

		storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid store id"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body submitRatingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SubmitOrUpdate(r.Context(), userID, storeID, body.Rating)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// StoreRatings lists a store's ratings with rater identity and the live aggregate.
func StoreRatings(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ratings service unavailable"))
			return
		}

		storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid store id"))
			return
		}

		result, err := svc.ListForStore(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
