/*
Package authclient is a typed client for the exam platform REST backend.

# Overview

Client covers the endpoints the session layer needs: login, registration,
token refresh, password reset and the current user's profile. It keeps no
state between calls; token storage and refresh scheduling belong to the
session package.

	client := authclient.NewClient("https://api.example.com/api")

	res, err := client.Login(ctx, authclient.Credentials{
		Username: "alice",
		Password: "Secret1!",
	})
	if err != nil {
		log.Println(authclient.UserMessage(err))
		return
	}

	user, err := client.Profile(ctx, res.Tokens.Access, "")

# Errors

Non-2xx responses become *APIError. Responses with a 2xx status but the
wrong shape fail with ErrMalformedResponse. UserMessage converts either,
as well as ValidationErrors from RegisterRequest.Validate, into a
localized message suitable for display.

# Profile endpoint

Backends expose the current user either at /profile/ or at /users/{id}/.
Set Client.ProfilePath accordingly; the "{id}" placeholder is filled with
the id passed to Profile.
*/
package authclient
