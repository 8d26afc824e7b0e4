// Package client contains the client side of the gophauth protocol.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     every account flow: public key retrieval, registration, verification,
//     login, password recovery and password change.
//  2. A concrete gRPC implementation (see GRPCClient) speaking the JSON
//     encoded gophauth.AuthService, attaching the session token to
//     protected calls and mapping statuses back to the sentinel errors of
//     package common.
//
// # Error Handling
//
// Service outcomes come back as the errors of package common (for example
// common.ErrNoMatch or common.ErrLoginTaken) and can be matched with
// errors.Is. Transport failures are reported as ErrUnavailable.
package client
