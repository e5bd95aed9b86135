//go:build !unix

package sidecar

import (
	"errors"
	"os"
)

var errNoJobControl = errors.New("pausing the sidecar is not supported on this platform")

func stopSignal(*os.Process) error { return errNoJobControl }

func continueSignal(*os.Process) error { return errNoJobControl }
