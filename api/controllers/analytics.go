package controllers

import (
	"net/http"

	"github.com/payboard/payboard-backend/api/responses"
	"github.com/payboard/payboard-backend/internal/analytics"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

// AnalyticsSummary returns the admin dashboard aggregate.
func AnalyticsSummary(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
