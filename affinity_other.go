//go:build !linux

package prioexec

import (
	"errors"
)

var errPinUnsupported = errors.New("prioexec: cpu pinning is only supported on linux")

var pinWorker = PinToCPU

func PinToCPU(int) error { return errPinUnsupported }
