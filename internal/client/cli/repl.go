package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Wallet(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Learning(ctx context.Context) error
	Tools(ctx context.Context) error
	UpdateEmail(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the portal CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF, when ctx is done, or when
// the user types "exit" or "quit".
//
// Commands:
//
//	help              show available commands
//	register          create an account and log in
//	login             log in with username and password
//	wallet            log in with a wallet signature
//	whoami            show the current profile
//	learning | l      list learning topics
//	tools | t         list tools
//	email             change the email address
//	logout            log out
//	exit | quit       leave the program
//
// Errors returned by command handlers are ignored here; handlers print and
// log their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("portal %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, (l)earning, (t)ools, email, logout, exit")
			} else {
				printlnFn("Available commands: register, login, wallet, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "wallet":
			_ = a.Wallet(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "l", "learning":
			_ = a.Learning(ctx)

		case "t", "tools":
			_ = a.Tools(ctx)

		case "email":
			_ = a.UpdateEmail(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
