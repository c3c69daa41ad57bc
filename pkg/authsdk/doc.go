/*
Package authsdk provides a client SDK for the techpost authentication service.

# Overview

The service issues a short-lived access token (a JWT sent as a bearer
credential) and a long-lived refresh token that only ever travels in an
HttpOnly cookie. The SDK keeps that cookie in the cookie jar of its HTTP
client and never exposes it.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (signup, login, health) and
    creation of Sessions
  - Session: authenticated operations with automatic reissue

	client := authsdk.NewSDKClient("https://auth.example.com")

	_, err := client.Signup(ctx, authsdk.SignupRequest{
		Username:    "alice01",
		Password:    "s3cretpass",
		DisplayName: "Alice",
	})

	session, err := client.Login(ctx, "alice01", "s3cretpass")

	me, err := session.Me(ctx)

# Reissue

Each reissue rotates the refresh token: the cookie in the jar is replaced
and the old value stops working. Session methods reissue automatically 30
seconds before the access token expires. Reissue can also be called
directly.

Two clients sharing one refresh cookie race on reissue; exactly one of them
wins and the other receives REFRESH_TOKEN_NOT_FOUND.

# Error Handling

Failed requests return *APIError carrying the service error code. The
predefined values compare with errors.Is:

	if errors.Is(err, authsdk.ErrRefreshTokenNotFound) {
		// log in again
	}

# Thread Safety

Sessions are safe for concurrent use. Concurrent callers that find the
access token expired wait for a single reissue.
*/
package authsdk
