package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	PublicKey(ctx context.Context) error
	Register(ctx context.Context) error
	Verify(ctx context.Context) error
	Resend(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Forgot(ctx context.Context) error
	Recover(ctx context.Context) error
	Passwd(ctx context.Context) error
}

// runREPL reads commands from scanner until EOF, "exit" or "quit".
//
//	Always:
//	  - help           show available commands
//	  - pubkey         print the server public key
//	  - exit | quit    leave the program
//
//	Not logged in:
//	  - register       create an account
//	  - verify         redeem an email verification token
//	  - resend         request a new verification email
//	  - login          authenticate
//	  - forgot         request a password recovery code
//	  - recover        set a new password with a recovery code
//
//	Logged in:
//	  - passwd         change the password
//	  - logout         forget the session token
//
// Command errors are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("authctl %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: passwd, logout, pubkey, exit")
			} else {
				printlnFn("Available commands: register, verify, resend, login, forgot, recover, pubkey, exit")
			}

		case "pubkey":
			err = a.PublicKey(ctx)
		case "register":
			err = a.Register(ctx)
		case "verify":
			err = a.Verify(ctx)
		case "resend":
			err = a.Resend(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "forgot":
			err = a.Forgot(ctx)
		case "recover":
			err = a.Recover(ctx)
		case "passwd":
			err = a.Passwd(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", err)
		}
	}
}
