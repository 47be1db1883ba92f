//go:build windows

package player

import "syscall"

const (
	createNoWindow  = 0x08000000
	detachedProcess = 0x00000008
)

func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: createNoWindow | detachedProcess,
		HideWindow:    true,
	}
}
