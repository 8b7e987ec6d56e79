package domain

import "time"

// Client is a registered OAuth2 relying party.
type Client struct {
	ID           string // stable client_id, e.g. "sonarr"
	Name         string
	SecretHash   string // argon2id, empty for public clients
	RedirectURIs []string
	Scopes       []string // scopes the client may request
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsPublic reports whether the client has no secret and must use PKCE.
func (c *Client) IsPublic() bool {
	return c.SecretHash == ""
}
