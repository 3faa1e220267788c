/*
Package session manages the signed-in user's tokens on the client side.

# Overview

A Controller owns one session. It logs in through a Backend (normally an
*authclient.Client), keeps the token pair in a tokenstore.Store and
publishes every change as an immutable SessionState:

	store := tokenstore.New(tokenstore.NewMemory(), durable, logger)
	ctrl := session.NewController(session.Config{
		Backend: authclient.NewClient(apiURL),
		Store:   store,
		Logger:  logger,
	})
	ctrl.Init(ctx)

	state, err := ctrl.Login(ctx, authclient.Credentials{
		Username:   "alice",
		Password:   "Secret1!",
		RememberMe: true,
	})

# Refresh

Access tokens are short lived. Refresh exchanges the stored refresh token
for a new access token; concurrent callers share a single backend call.
When the backend rejects the refresh token the session is cleared and
ErrSessionExpired is returned. Network failures leave the session alone.

# Transport

Transport is an http.RoundTripper for API calls. It attaches the bearer
token, refreshes ahead of the request when the access token has expired,
and retries once after a 401:

	tr, err := session.NewTransport(ctrl, apiURL, nil)
	client := tr.Client()
	resp, err := client.Get(apiURL + "/exams/")

Login, registration, password reset and refresh requests, as well as
requests to other hosts, are passed through untouched.

# Validity

Tokens are decoded without signature verification; the client only reads
exp. A token that does not decode is treated as expired.
*/
package session
