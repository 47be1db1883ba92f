//go:build unix

package player

import "syscall"

// detachAttr 让子进程进入新会话，终端关闭时不会被 SIGHUP 连带结束。
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
