package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// The admin calls need an active session whose account holds the matching
// permission.

// CreateClient registers an OAuth2 client.
func (c *Client) CreateClient(ctx context.Context, req CreateClientRequest) (*CreateClientResponse, error) {
	var out CreateClientResponse
	if err := c.doJSON(ctx, http.MethodPost, "/admin/clients", req, &out, http.StatusCreated, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListClients lists registered clients.
func (c *Client) ListClients(ctx context.Context) (*ListClientsResponse, error) {
	var out ListClientsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/admin/clients", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteClient removes a client.
func (c *Client) DeleteClient(ctx context.Context, clientID string) error {
	path := "/admin/clients/" + url.PathEscape(clientID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, http.StatusNoContent, nil)
}

// RegenerateClientSecret replaces a confidential client's secret.
func (c *Client) RegenerateClientSecret(ctx context.Context, clientID string) (*RegenerateSecretResponse, error) {
	var out RegenerateSecretResponse
	path := "/admin/clients/" + url.PathEscape(clientID) + "/secret"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnlockAccount clears the login lockout of an account.
func (c *Client) UnlockAccount(ctx context.Context, identifier string) error {
	path := "/admin/accounts/" + url.PathEscape(identifier) + "/unlock"
	return c.doJSON(ctx, http.MethodPost, path, nil, nil, http.StatusNoContent, nil)
}

// SigningKeys lists the service's signing keys.
func (c *Client) SigningKeys(ctx context.Context) (*ListSigningKeysResponse, error) {
	var out ListSigningKeysResponse
	if err := c.doJSON(ctx, http.MethodGet, "/admin/keys", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// RotateSigningKey makes a fresh signing key current.
func (c *Client) RotateSigningKey(ctx context.Context) (*RotateKeyResponse, error) {
	var out RotateKeyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/admin/keys/rotate", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}
