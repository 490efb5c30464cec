// Package client contains the portal backend API client and the local
// database bootstrap used by the front-ends.
//
// # Overview
//
// The package provides:
//  1. The Client interface: password and wallet login, registration, the
//     current user profile, learning topics, tools, profile updates and a
//     health probe.
//  2. HTTPClient, the HTTP/JSON implementation. It reads the bearer token from
//     an attached Session and calls Session.Unauthorized synchronously, with the
//     token the request carried, whenever the backend answers 401.
//  3. InitDatabase and RunMigrations, which open the SQLite database holding
//     the persisted session and apply the embedded goose migrations.
//
// # Error Handling
//
// Every failed call returns an *Error. Its Message is user-facing: the server's
// "detail" when present, the transport error text when there was no response,
// and a generic per-operation message otherwise. *Error unwraps to one of
// ErrUnavailable, ErrUnauthorized, ErrValidation, ErrServer or
// ErrMalformedResponse, so callers can match it with errors.Is.
package client
