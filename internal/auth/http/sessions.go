package http

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
)

type identityKey struct{}

func withIdentity(ctx context.Context, id service.Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, id)
	return httpx.WithAccount(ctx, id.Account.ID)
}

// identityFrom returns the identity stored by RequireSession.
func identityFrom(ctx context.Context) (service.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(service.Identity)
	return id, ok
}

// SessionHandler serves the browser session endpoints under /auth.
type SessionHandler struct {
	Sessions *service.SessionService
	cookies  cookies
}

// NewSessionHandler writes cookies for every slot the service allows.
// insecure drops the Secure flag for local plain-HTTP setups.
func NewSessionHandler(sessions *service.SessionService, insecure bool) *SessionHandler {
	return &SessionHandler{
		Sessions: sessions,
		cookies:  cookies{insecure: insecure, slots: sessions.NumSlots()},
	}
}

// resolve finds the caller's session: the active slot's cookie, else the
// legacy cookie, else a bearer session token.
func (h *SessionHandler) resolve(r *http.Request) (service.Identity, error) {
	ctx := r.Context()

	if slot, ok := h.cookies.activeSlot(r); ok {
		if token := cookieValue(r, slotCookieName(slot)); token != "" {
			return h.Sessions.Resolve(ctx, token)
		}
	}
	if token := cookieValue(r, legacyCookieName); token != "" {
		return h.Sessions.Resolve(ctx, token)
	}
	if token, ok := httpx.BearerToken(r); ok {
		return h.Sessions.Resolve(ctx, token)
	}
	return service.Identity{}, service.ErrUnauthenticated
}

// RequireSession rejects requests without a live session and stores the
// identity in the request context.
func (h *SessionHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.resolve(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := withIdentity(r.Context(), id)
		ctx = slogx.With(ctx, "account_id", id.Account.ID, "session_id", id.Session.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// occupied lists the slots holding a live session. Slots whose cookie no
// longer resolves count as free.
func (h *SessionHandler) occupied(r *http.Request) []service.OccupiedSlot {
	var out []service.OccupiedSlot
	for slot, token := range h.cookies.slotTokens(r) {
		id, err := h.Sessions.Resolve(r.Context(), token)
		if err != nil || id.Session.Slot != slot {
			continue
		}
		out = append(out, service.OccupiedSlot{Slot: slot, AccountID: id.Account.ID, SessionID: id.Session.ID})
	}
	return out
}

func (h *SessionHandler) writeLogin(w http.ResponseWriter, res service.LoginResult) {
	h.cookies.setSlot(w, res.Session.Slot, res.Token, res.Session.ExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, loginResponse(res.Account.ID, res.Account.Username, res.Session.ID, res.Session.Slot, res.Session.ExpiresAt))
}

func loginResponse(accountID, username, sessionID string, slot int, expires time.Time) authsdk.LoginResponse {
	return authsdk.LoginResponse{
		AccountID: accountID,
		Username:  username,
		SessionID: sessionID,
		Slot:      slot,
		ExpiresAt: expires.Unix(),
	}
}

// HandleLogin handles POST /auth/login
//
//	@Summary		Sign in
//	@Description	Verifies credentials and stores the new session in a browser slot cookie.
//	@Description	Answers 409 with a challenge token when a second factor is due and no code was sent.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		401		{object}	authsdk.OAuth2Error	"invalid_credentials"
//	@Failure		403		{object}	authsdk.OAuth2Error	"two_factor_setup_required"
//	@Failure		409		{object}	authsdk.TwoFactorRequiredError
//	@Failure		429		{object}	authsdk.AccountLockedError
//	@Router			/auth/login [post]
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Sessions.Login(r.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		Code:       req.Code,
		Occupied:   h.occupied(r),
		UserAgent:  r.UserAgent(),
		IP:         httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLogin(w, res)
}

// HandleCompleteChallenge handles POST /auth/login/2fa
//
//	@Summary		Complete a two-factor sign in
//	@Description	Redeems the challenge token of a 409 login with a TOTP or recovery code.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CompleteChallengeRequest	true	"Challenge and code"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		401		{object}	authsdk.OAuth2Error
//	@Router			/auth/login/2fa [post]
func (h *SessionHandler) HandleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CompleteChallengeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Sessions.CompleteChallenge(r.Context(), service.ChallengeInput{
		ChallengeToken: req.ChallengeToken,
		Code:           req.Code,
		Occupied:       h.occupied(r),
		UserAgent:      r.UserAgent(),
		IP:             httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLogin(w, res)
}

// HandleLogout handles POST /auth/logout
//
//	@Summary		Sign out of the active slot
//	@Description	Revokes the active session, clears its slot cookie, the active pointer and the legacy cookie.
//	@Tags			Sessions
//	@Success		204
//	@Router			/auth/logout [post]
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	slot, hasSlot := h.cookies.activeSlot(r)

	id, err := h.resolve(r)
	switch {
	case err == nil:
		if err := h.Sessions.Logout(r.Context(), id.Session.ID); err != nil {
			writeError(w, r, err)
			return
		}
		slot, hasSlot = id.Session.Slot, true
	case !errors.Is(err, service.ErrUnauthenticated):
		writeError(w, r, err)
		return
	}

	if hasSlot {
		h.cookies.clear(w, slotCookieName(slot))
	}
	h.cookies.clear(w, activeCookieName)
	h.cookies.clear(w, legacyCookieName)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSwitch handles POST /auth/switch/{slot}
//
//	@Summary		Switch the active account
//	@Description	Points the active cookie at another slot holding a live session. No other slot changes.
//	@Tags			Sessions
//	@Produce		json
//	@Param			slot	path		int	true	"Slot index"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		401		{object}	authsdk.OAuth2Error
//	@Failure		404		{object}	authsdk.OAuth2Error
//	@Router			/auth/switch/{slot} [post]
func (h *SessionHandler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil || slot < 0 || slot >= h.cookies.slots {
		authsdk.ErrInvalidRequest.WithDescription("slot out of range").WriteError(w)
		return
	}

	token := cookieValue(r, slotCookieName(slot))
	if token == "" {
		authsdk.ErrNotFound.WithDescription("no session in that slot").WriteError(w)
		return
	}

	id, err := h.Sessions.Switch(r.Context(), token, slot)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.setActive(w, slot, id.Session.ExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, loginResponse(id.Account.ID, id.Account.Username, id.Session.ID, slot, id.Session.ExpiresAt))
}

// HandleAccounts handles GET /auth/accounts
//
//	@Summary		Accounts signed in on this browser
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	{object}	authsdk.ListAccountsResponse
//	@Router			/auth/accounts [get]
func (h *SessionHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	active, ok := h.cookies.activeSlot(r)
	if !ok {
		active = -1
	}

	tokens := h.cookies.slotTokens(r)
	slots := make([]int, 0, len(tokens))
	for slot := range tokens {
		slots = append(slots, slot)
	}
	slices.Sort(slots)

	resp := authsdk.ListAccountsResponse{Accounts: []authsdk.SignedInAccount{}}
	for _, slot := range slots {
		id, err := h.Sessions.Resolve(r.Context(), tokens[slot])
		if err != nil || id.Session.Slot != slot {
			continue
		}
		resp.Accounts = append(resp.Accounts, authsdk.SignedInAccount{
			Slot:      slot,
			AccountID: id.Account.ID,
			Username:  id.Account.Username,
			Active:    slot == active,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleList handles GET /auth/sessions
//
//	@Summary		List the caller's sessions
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	{object}	authsdk.ListSessionsResponse
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Router			/auth/sessions [get]
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	sessions, err := h.Sessions.List(r.Context(), id.Account.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := authsdk.ListSessionsResponse{Sessions: make([]authsdk.SessionInfo, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, authsdk.SessionInfo{
			ID:        s.ID,
			Slot:      s.Slot,
			UserAgent: s.UserAgent,
			IP:        s.IP,
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
			ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
			Current:   s.ID == id.Session.ID,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRevoke handles DELETE /auth/sessions/{id}
//
//	@Summary		Revoke one of the caller's sessions
//	@Tags			Sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204
//	@Failure		404	{object}	authsdk.OAuth2Error
//	@Router			/auth/sessions/{id} [delete]
func (h *SessionHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	target := r.PathValue("id")

	if err := h.Sessions.Revoke(r.Context(), id.Account.ID, target); err != nil {
		writeError(w, r, err)
		return
	}

	if target == id.Session.ID {
		h.cookies.clear(w, slotCookieName(id.Session.Slot))
		h.cookies.clear(w, activeCookieName)
	}
	w.WriteHeader(http.StatusNoContent)
}
