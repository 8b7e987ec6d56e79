package http

import (
	"net/http"

	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
//
//	@Summary		Get JWKS
//	@Description	Returns every public key that may have signed a live token, current and previous.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/oauth2/jwks [get]
//	@Router			/.well-known/jwks.json [get]
func JWKSHandler(tokens *service.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.Header().Set("Content-Type", "application/json")
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(tokens.JWKS()))
	}
}

// DiscoveryHandler serves the OpenID Provider configuration.
//
//	@Summary		OpenID configuration
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.OpenIDConfiguration
//	@Router			/.well-known/openid-configuration [get]
func DiscoveryHandler(tokens *service.TokenService) http.HandlerFunc {
	cfg := tokens.OpenIDConfiguration()
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, cfg)
	}
}
