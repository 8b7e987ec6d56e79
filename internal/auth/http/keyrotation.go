package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
)

// KeyRotationHandler handles signing key operations in both ephemeral and
// persistent modes. Routes require the keys.manage permission.
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

// HandleRotate handles POST /admin/keys/rotate
//
//	@Summary		Rotate signing keys
//	@Description	Makes a fresh key current. The previous key keeps verifying until it leaves the retention window.
//	@Tags			Keys
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{object}	authsdk.RotateKeyResponse
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Failure		403	{object}	authsdk.OAuth2Error
//	@Router			/admin/keys/rotate [post]
func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	resp, err := h.KeyRotationService.RotateKey(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RotateKeyResponse{
		Kid:        resp.Kid,
		ActiveKids: resp.ActiveKids,
	})
}

// HandleListKeys handles GET /admin/keys
//
//	@Summary		List signing keys
//	@Description	Lists keys with their status. Ephemeral keys only carry a kid.
//	@Tags			Keys
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{object}	authsdk.ListSigningKeysResponse
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Failure		403	{object}	authsdk.OAuth2Error
//	@Router			/admin/keys [get]
func (h *KeyRotationHandler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.KeyRotationService.ListSigningKeys(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := authsdk.ListSigningKeysResponse{Keys: make([]authsdk.SigningKeyInfo, 0, len(keys))}
	for _, k := range keys {
		resp.Keys = append(resp.Keys, signingKeyInfo(k))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func signingKeyInfo(key domain.SigningKey) authsdk.SigningKeyInfo {
	info := authsdk.SigningKeyInfo{Kid: key.Kid, Algorithm: key.Algorithm}
	if !key.CreatedAt.IsZero() {
		info.CreatedAt = key.CreatedAt.Format(time.RFC3339)
	}
	if key.RetiredAt != nil {
		s := key.RetiredAt.Format(time.RFC3339)
		info.RetiredAt = &s
	}
	return info
}
