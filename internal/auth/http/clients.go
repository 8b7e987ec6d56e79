package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
)

// ClientsHandler handles the OAuth2 client registry. Every route requires
// the oauth.clients.manage permission.
type ClientsHandler struct {
	ClientService *service.ClientService
}

// HandleCreate handles POST /admin/clients
//
//	@Summary		Register OAuth2 Client
//	@Description	Registers a client. Confidential clients get a generated secret that is returned only here.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		SessionCookie
//	@Param			request	body		authsdk.CreateClientRequest		true	"Client registration"
//	@Success		201		{object}	authsdk.CreateClientResponse	"client_id and client_secret (confidential only)"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		401		{object}	authsdk.OAuth2Error
//	@Failure		403		{object}	authsdk.OAuth2Error
//	@Failure		409		{object}	authsdk.OAuth2Error	"client_id taken"
//	@Router			/admin/clients [post]
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	client, secret, err := h.ClientService.CreateClient(r.Context(), service.ClientInput{
		ID:           req.ClientID,
		Name:         req.Name,
		RedirectURIs: req.RedirectURIs,
		Scopes:       req.Scopes,
		Public:       req.Public,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.CreateClientResponse{
		ClientID:     client.ID,
		ClientSecret: secret,
	})
}

// HandleList handles GET /admin/clients
//
//	@Summary		List OAuth2 Clients
//	@Tags			Clients
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{object}	authsdk.ListClientsResponse
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Failure		403	{object}	authsdk.OAuth2Error
//	@Router			/admin/clients [get]
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.ClientService.ListClients(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := authsdk.ListClientsResponse{Clients: make([]authsdk.ClientInfo, 0, len(clients))}
	for _, c := range clients {
		resp.Clients = append(resp.Clients, clientInfo(c))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /admin/clients/{id}
//
//	@Summary		Delete OAuth2 Client
//	@Description	Deletes a client. Its tokens stop introspecting as active.
//	@Tags			Clients
//	@Security		SessionCookie
//	@Param			id	path	string	true	"client_id"
//	@Success		204
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Failure		403	{object}	authsdk.OAuth2Error
//	@Failure		404	{object}	authsdk.OAuth2Error
//	@Router			/admin/clients/{id} [delete]
func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ClientService.DeleteClient(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRegenerateSecret handles POST /admin/clients/{id}/secret
//
//	@Summary		Regenerate Client Secret
//	@Description	Replaces the secret of a confidential client. The old secret stops working immediately.
//	@Tags			Clients
//	@Produce		json
//	@Security		SessionCookie
//	@Param			id	path		string	true	"client_id"
//	@Success		200	{object}	authsdk.RegenerateSecretResponse
//	@Failure		400	{object}	authsdk.OAuth2Error	"public client"
//	@Failure		404	{object}	authsdk.OAuth2Error
//	@Router			/admin/clients/{id}/secret [post]
func (h *ClientsHandler) HandleRegenerateSecret(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	secret, err := h.ClientService.RegenerateClientSecret(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RegenerateSecretResponse{
		ClientID:     id,
		ClientSecret: secret,
	})
}

func clientInfo(c domain.Client) authsdk.ClientInfo {
	return authsdk.ClientInfo{
		ClientID:     c.ID,
		Name:         c.Name,
		RedirectURIs: c.RedirectURIs,
		Scopes:       c.Scopes,
		Public:       c.IsPublic(),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}
