/*
Package authsdk holds the wire types of the kubarr auth service and a small
client for driving it.

The Client behaves like a browser: it keeps the slot cookies in a cookie
jar, so several accounts can be signed in at once and Switch moves the
active slot between them.

	c, err := authsdk.NewClient("https://auth.kubarr.local")
	login, err := c.Login(ctx, authsdk.LoginRequest{Identifier: "alice", Password: pw})

	var tfa *authsdk.TwoFactorRequiredError
	if errors.As(err, &tfa) {
		login, err = c.CompleteChallenge(ctx, authsdk.CompleteChallengeRequest{
			ChallengeToken: tfa.ChallengeToken,
			Code:           otp,
		})
	}

The OAuth2 helpers run the authorization code flow with PKCE on behalf of a
relying party:

	verifier, challenge := authsdk.NewPKCE()
	code, err := c.Authorize(ctx, authsdk.AuthorizeParams{
		ClientID:      "sonarr",
		RedirectURI:   "https://sonarr.local/callback",
		Scope:         "openid profile",
		CodeChallenge: challenge,
	})
	tokens, err := c.ExchangeCode(ctx, clientID, clientSecret, code, redirectURI, verifier)

Every non-2xx response is returned as *OAuth2Error, *TwoFactorRequiredError
or *AccountLockedError.
*/
package authsdk
