package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/payboard/payboard-backend/api/responses"
	"github.com/payboard/payboard-backend/api/validators"
	"github.com/payboard/payboard-backend/internal/users"
	"github.com/payboard/payboard-backend/pkg/enums"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

type setRolePayload struct {
	Role string `json:"role" validate:"required,oneof=Admin User"`
}

type issueCredentialsPayload struct {
	Username string `json:"username"`
}

// UsersList returns every known account. Admin only.
func UsersList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		accounts, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"users": accounts})
	}
}

// UserSetRole assigns a role to an account.
func UserSetRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var body setRolePayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id := chi.URLParam(r, "id")
		if err := svc.SetRole(r.Context(), id, enums.ParseRole(body.Role)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"discordId": id, "role": body.Role})
	}
}

// UserIssueCredentials provisions a username/password credential for an
// account. The generated password appears in this response and nowhere else.
func UserIssueCredentials(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var body issueCredentialsPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id := chi.URLParam(r, "id")
		password, err := svc.IssueCredentials(r.Context(), id, body.Username)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"discordId": id, "password": password})
	}
}
