package controllers

import (
	"net/http"

	"github.com/storepulse/storepulse-backend/api/responses"
	"github.com/storepulse/storepulse-backend/pkg/config"
	"github.com/storepulse/storepulse-backend/pkg/db"
	pkgerrors "github.com/storepulse/storepulse-backend/pkg/errors"
	"github.com/storepulse/storepulse-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-StorePulse-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when the datastore and cache respond.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, cacheP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-StorePulse-Env", cfg.App.Env)

		checks := map[string]string{}

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
			checks["database"] = "ok"
		}
		if cacheP != nil {
			if err := cacheP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
			checks["redis"] = "ok"
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
