package controllers

import (
	"net/http"

	"github.com/payboard/payboard-backend/api/middleware"
	"github.com/payboard/payboard-backend/api/responses"
	"github.com/payboard/payboard-backend/api/validators"
	"github.com/payboard/payboard-backend/internal/sellers"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

// SellerGet returns the caller's own payout profile.
func SellerGet(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		profile, err := svc.Get(r.Context(), middleware.DiscordIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// SellerSave upserts the caller's payout profile.
func SellerSave(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		var body sellers.SaveInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Save(r.Context(), middleware.DiscordIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
