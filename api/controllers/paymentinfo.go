package controllers

import (
	"net/http"

	"github.com/payboard/payboard-backend/api/responses"
	"github.com/payboard/payboard-backend/internal/paymentinfo"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

// PaymentInfo returns the form enums and the default due window in one call;
// the dashboard fetches it once per form render.
func PaymentInfo(svc paymentinfo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment info service unavailable"))
			return
		}

		enums, err := svc.Enums(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hours, err := svc.DueHours(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"dueHours":   hours,
			"sources":    enums.Sources,
			"methods":    enums.Methods,
			"currencies": enums.Currencies,
		})
	}
}
