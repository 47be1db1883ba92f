package player

import (
	"errors"
	"os/exec"

	"github.com/John-Robertt/playm3u/internal/domain"
)

// ErrNotFound 是 PlayerNotFound 的哨兵错误。
var ErrNotFound = errors.New("未找到播放器")

// 通过可替换的函数指针，让测试不真正拉起进程。
var startFunc = func(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	// 分离：不 Wait，也不保留句柄；子进程的生命周期与本进程无关。
	return cmd.Process.Release()
}

// Launcher 用 exe 打开 playlistPath。只报告 spawn 本身是否成功。
type Launcher interface {
	Launch(playlistPath, exe string) error
}

// Detached 以分离子进程的方式启动播放器：stdio 全部接到空设备，不等待退出。
type Detached struct{}

func (Detached) Launch(playlistPath, exe string) error {
	if exe == "" {
		return &domain.Error{Code: domain.ErrCodePlayerNotFound, Err: ErrNotFound}
	}

	cmd := exec.Command(exe, playlistPath)
	// Stdin/Stdout/Stderr 保持 nil：os/exec 会接到空设备。
	cmd.SysProcAttr = detachAttr()
	if err := startFunc(cmd); err != nil {
		return &domain.Error{Code: domain.ErrCodeLaunchFailed, Path: exe, Err: err}
	}
	return nil
}

// Open 先定位再启动；返回实际使用的可执行文件路径。
//
// 失败只有两类：player_not_found（定位链全部落空）与 launch_failed（spawn 失败）。
func Open(r Resolver, l Launcher, playlistPath string) (string, error) {
	exe, ok := r.Locate()
	if !ok {
		return "", &domain.Error{Code: domain.ErrCodePlayerNotFound, Err: ErrNotFound}
	}
	if err := l.Launch(playlistPath, exe); err != nil {
		return exe, err
	}
	return exe, nil
}
