// Package sbi is the kernel's view of the machine: the character
// console, the shutdown port, the timer, and the address-translation
// control points. Each is a variable so the platform layer installs
// the real implementation at boot and tests install recorders.
package sbi

import "fmt"
import "os"
import "time"

/// Console_i is a character sink/source.
type Console_i interface {
	Getc() (uint8, bool)
	Putc(uint8)
}

type hostcons_t struct{}

func (hostcons_t) Getc() (uint8, bool) { return 0, false }

func (hostcons_t) Putc(c uint8) {
	os.Stdout.Write([]byte{c})
}

/// Cons is the system console.
var Cons Console_i = hostcons_t{}

/// Shutdown stops the machine. failure selects the exit port value.
var Shutdown = func(failure bool) {
	if failure {
		fmt.Fprintf(os.Stderr, "[kernel] shutdown with failure\n")
		os.Exit(1)
	}
	os.Exit(0)
}

var boot = time.Now()

/// ReadTime returns the time CSR: ticks of CLOCK_FREQ since boot.
var ReadTime = func(clockfreq int) int {
	return int(time.Since(boot) * time.Duration(clockfreq) / time.Second)
}

/// SetTimer programs the next timer interrupt for the given absolute
/// tick count. The hosted default does nothing; the platform layer
/// forwards to the M-mode timer compare register.
var SetTimer = func(deadline int) {}

/// SetSatp installs an address-space token and orders the TLB. The
/// hosted default does nothing.
var SetSatp = func(token int) {}

/// Fencevma flushes stale translations.
var Fencevma = func() {}
