// Package api implements the HTTP client for the OrgVault record and
// identity service.
//
// The package provides:
//   - Client: HTTP transport with session token auth, JSON
//     serialization, and retry with exponential backoff
//   - Typed endpoint methods for the auth, key-exchange and item routes
//   - Tagged request/response structs for every payload the service
//     accepts or returns
//   - Structured error types parsed from service error bodies
//
// Nothing in this package ever sees plaintext record content or key
// material: every secret crosses this boundary wrapped or hashed.
// This is an internal package; callers use the public orgvault package.
package api
