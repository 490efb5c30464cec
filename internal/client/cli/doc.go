// Package cli wires the portal client and runs its front-ends.
//
// NewApp opens the local session store, builds the API client and the session
// services, and loads the wallet key when one is configured. Run starts the
// interactive REPL; Serve starts the web front-end. Both restore the persisted
// session in the background and run a watcher that pings the backend and
// picks up logins and logouts made by other processes sharing the store.
//
// GenerateWalletKey backs the cli binary's keygen command, which writes a
// new wallet key to the file given with -w.
//
// REPL commands:
//   - register / login / wallet / logout
//   - whoami, learning, tools, email (guarded: they wait for restoration and
//     ask the user to log in when there is no session)
package cli
