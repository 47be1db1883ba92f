//go:build !unix && !windows

package player

import "syscall"

func detachAttr() *syscall.SysProcAttr { return nil }
