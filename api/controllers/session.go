package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type sessionResponse struct {
	SessionToken string    `json:"session_token"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionCreate mints a shopper session token. A still-valid token presented
// in the Authorization header is renewed for the same session so the cart
// survives; anything else starts a new session.
func SessionCreate(cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := uuid.Nil
		if token, err := validators.BearerToken(r.Header.Get("Authorization")); err == nil {
			if claims, err := pkgAuth.ParseSessionToken(cfg, token); err == nil {
				sessionID = claims.SessionID
			}
		}

		token, claims, err := pkgAuth.MintSessionToken(cfg, time.Now(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeInternal, err, "mint session token"))
			return
		}

		resp := sessionResponse{
			SessionToken: token,
			SessionID:    claims.SessionID.String(),
		}
		if claims.ExpiresAt != nil {
			resp.ExpiresAt = claims.ExpiresAt.Time
		}
		if logg != nil {
			logg.Info(logg.WithSessionID(r.Context(), resp.SessionID), "session.issued")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}
