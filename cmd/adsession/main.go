// Command adsession drives an adsession.Manager from the terminal: log in,
// inspect or watch the session, check permissions and hash offline
// allow-list passwords.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
