// Package auth owns the token lifecycle and the request guards built on it.
//
// It has two halves:
//
//   - TokenService mints and verifies access/refresh tokens. Access and
//     refresh tokens are signed with separate secrets so a leak of one does
//     not compromise the other; short access expiry bounds the damage window
//     of a stolen token.
//   - The guards (RequireAccess for HTTP, BearerFromRequest for the
//     websocket handshake) verify access tokens and attach the resolved user
//     identity. They are purely cryptographic: no storage lookup happens on
//     the hot path.
//
// Refresh tokens are additionally pinned to the value persisted on the user
// record; verifying the signature alone is never enough to trust one. That
// equality check lives with the callers (see internal/api), keeping this
// package stateless.
package auth
