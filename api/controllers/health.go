package controllers

import (
	"context"
	"net/http"

	"github.com/payboard/payboard-backend/api/responses"
	"github.com/payboard/payboard-backend/pkg/config"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Payboard-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named backing service; the first failure turns the
// probe into a 503 naming the broken dependency.
func HealthReady(cfg *config.Config, logg *logger.Logger, probes map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Payboard-Env", cfg.App.Env)

		for name, probe := range probes {
			if probe == nil {
				continue
			}
			if err := probe(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
						WithDetails(map[string]string{"dependency": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
