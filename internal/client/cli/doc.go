// Package cli provides authctl, the interactive gophauth command-line client.
//
// It connects to the gRPC endpoint, keeps track of server reachability in
// the background and runs a REPL over the account flows:
//
//   - register, verify, resend
//   - login, logout, passwd
//   - forgot, recover
//   - pubkey
//
// Secrets never leave the process in the clear. Passwords are turned into a
// verifier locally, and every secret sent to the server is sealed with the
// server's public key together with a fresh nonce.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
