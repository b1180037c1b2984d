package controllers

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/payboard/payboard-backend/api/middleware"
	"github.com/payboard/payboard-backend/api/responses"
	"github.com/payboard/payboard-backend/api/validators"
	"github.com/payboard/payboard-backend/internal/payments"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/pagination"
)

// actorFromRequest builds the mutation actor from the authenticated context.
func actorFromRequest(r *http.Request) payments.Actor {
	ctx := r.Context()
	return payments.Actor{
		DiscordID: middleware.DiscordIDFromContext(ctx),
		Nickname:  middleware.NicknameFromContext(ctx),
		Role:      middleware.RoleFromContext(ctx),
	}
}

// PaymentsList returns a page of the ledger.
func PaymentsList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, math.MaxInt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), pagination.Params{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// PaymentsCreate records a new payment and returns the generated identifier.
func PaymentsCreate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body payments.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), actorFromRequest(r), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func PaymentsGet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		payment, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// PaymentsUpdate applies a sparse patch to one payment.
func PaymentsUpdate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body payments.UpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id := chi.URLParam(r, "id")
		if err := svc.Update(r.Context(), actorFromRequest(r), id, body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"uniqueId": id})
	}
}

type setPaidPayload struct {
	Paid *bool `json:"paid" validate:"required"`
}

// PaymentsSetPaid flips the paid flag to an explicit value.
func PaymentsSetPaid(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body setPaidPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id := chi.URLParam(r, "id")
		if err := svc.SetPaid(r.Context(), actorFromRequest(r), id, *body.Paid); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"uniqueId": id, "paidFlag": *body.Paid})
	}
}

func PaymentsDelete(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		id := chi.URLParam(r, "id")
		if err := svc.Delete(r.Context(), actorFromRequest(r), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"uniqueId": id, "status": "deleted"})
	}
}
