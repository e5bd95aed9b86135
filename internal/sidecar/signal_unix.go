//go:build unix

package sidecar

import (
	"os"
	"syscall"
)

func stopSignal(p *os.Process) error {
	return p.Signal(syscall.SIGSTOP)
}

func continueSignal(p *os.Process) error {
	return p.Signal(syscall.SIGCONT)
}
