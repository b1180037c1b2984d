package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/payboard/payboard-backend/api/responses"
	"github.com/payboard/payboard-backend/api/validators"
	"github.com/payboard/payboard-backend/internal/users"
	pkgAuth "github.com/payboard/payboard-backend/pkg/auth"
	"github.com/payboard/payboard-backend/pkg/config"
	"github.com/payboard/payboard-backend/pkg/discord"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

type discordLoginPayload struct {
	Code string `json:"code" validate:"required"`
}

type passwordLoginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResult struct {
	Token   string         `json:"token"`
	Account *users.Account `json:"account"`
}

// AuthDiscordURL hands the frontend the authorize URL for the configured
// application. The state value is caller-supplied and echoed back by Discord.
func AuthDiscordURL(oauth *discord.OAuthClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if oauth == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discord oauth unavailable"))
			return
		}
		state := strings.TrimSpace(r.URL.Query().Get("state"))
		responses.WriteSuccess(w, map[string]string{"url": oauth.AuthorizeURL(state)})
	}
}

// AuthDiscord completes the OAuth code flow: exchange the code, fetch the
// Discord identity, upsert the account row and mint a session token.
func AuthDiscord(oauth *discord.OAuthClient, svc users.Service, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if oauth == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body discordLoginPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		token, err := oauth.ExchangeCode(ctx, body.Code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		identity, err := oauth.FetchUser(ctx, token.AccessToken)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		account, err := svc.EnsureAccount(ctx, identity.ID, identity.Username, identity.GlobalName)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		signed, err := pkgAuth.MintAccessToken(jwtCfg, time.Now(), pkgAuth.AccessTokenPayload{
			DiscordID: account.DiscordID,
			Role:      account.Role,
			Nickname:  account.Nickname,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token"))
			return
		}

		responses.WriteSuccess(w, loginResult{Token: signed, Account: account})
	}
}

// AuthLogin is the username/password fallback for accounts that were issued
// credentials by an admin.
func AuthLogin(svc users.Service, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body passwordLoginPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		account, err := svc.LoginWithPassword(ctx, body.Username, body.Password)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		signed, err := pkgAuth.MintAccessToken(jwtCfg, time.Now(), pkgAuth.AccessTokenPayload{
			DiscordID: account.DiscordID,
			Role:      account.Role,
			Nickname:  account.Nickname,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token"))
			return
		}

		responses.WriteSuccess(w, loginResult{Token: signed, Account: account})
	}
}
