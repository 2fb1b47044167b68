//go:build !unix

package main

import "os"

// shutdownSignals ends the watch command. Only Interrupt exists off Unix.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
