package authsdk

import (
	"context"
	"net/http"
	"strconv"
)

// Login signs an account in. A *TwoFactorRequiredError means the password
// was accepted and CompleteChallenge must follow.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteChallenge submits the second factor for a pending login.
func (c *Client) CompleteChallenge(ctx context.Context, req CompleteChallengeRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login/2fa", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the active session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil, http.StatusNoContent, nil)
}

// Sessions lists the active account's live sessions.
func (c *Client) Sessions(ctx context.Context) (*ListSessionsResponse, error) {
	var out ListSessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/sessions", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeSession revokes one of the active account's sessions.
func (c *Client) RevokeSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/auth/sessions/"+sessionID, nil, nil, http.StatusNoContent, nil)
}

// Switch makes slot the active session.
func (c *Client) Switch(ctx context.Context, slot int) (*LoginResponse, error) {
	var out LoginResponse
	path := "/auth/switch/" + strconv.Itoa(slot)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Accounts lists every account signed in on this client.
func (c *Client) Accounts(ctx context.Context) (*ListAccountsResponse, error) {
	var out ListAccountsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/accounts", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// BeginTwoFactorSetup starts TOTP enrollment for the active account.
func (c *Client) BeginTwoFactorSetup(ctx context.Context) (*TwoFactorSetupResponse, error) {
	var out TwoFactorSetupResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/2fa/setup", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmTwoFactorSetup enables TOTP and returns the recovery codes.
func (c *Client) ConfirmTwoFactorSetup(ctx context.Context, code string) (*RecoveryCodesResponse, error) {
	var out RecoveryCodesResponse
	req := TwoFactorCodeRequest{Code: code}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/2fa/confirm", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// DisableTwoFactor turns TOTP off after re-proving the password.
func (c *Client) DisableTwoFactor(ctx context.Context, password string) error {
	req := TwoFactorDisableRequest{Password: password}
	return c.doJSON(ctx, http.MethodPost, "/auth/2fa/disable", req, nil, http.StatusNoContent, nil)
}
