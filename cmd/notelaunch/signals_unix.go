//go:build unix

package main

import (
	"os"
	"syscall"
)

// shutdownSignals ends the watch command. On Unix this includes SIGTERM.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
