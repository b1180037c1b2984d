package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/payboard/payboard-backend/api/responses"
	"github.com/payboard/payboard-backend/internal/audit"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

// PaymentAudit returns the full history for one payment, oldest first. History
// survives deletion of the payment itself, so an empty result is a valid
// answer rather than a 404.
func PaymentAudit(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		entries, err := svc.Query(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}
