// Package watch 监视目录，视频集合变化时重建 playlist.m3u。
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/John-Robertt/playm3u/internal/domain"
	"github.com/John-Robertt/playm3u/internal/infra/fsx"
	"github.com/John-Robertt/playm3u/internal/logging"
	"github.com/John-Robertt/playm3u/internal/playlist"
)

// DefaultDebounce 是合并连续事件的默认窗口（复制大文件时会产生大量 Write）。
const DefaultDebounce = 500 * time.Millisecond

// Watcher 只监视 Dir 本身，不递归子目录。
//
// 所有重建都在 Run 的事件循环里串行执行。
type Watcher struct {
	Dir      string
	Debounce time.Duration

	// Build 为 nil 时使用 playlist.Build。
	Build func(dir string) (playlist.Result, error)
	// OnBuild 在每次重建后调用（含启动时的首次构建），可为 nil。
	OnBuild func(playlist.Result, error)

	Logger *zap.Logger
}

// Run 先构建一次，然后阻塞直到 ctx 取消（返回 nil）或监视器无法建立（返回错误）。
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.OrNop(w.Logger)
	dir, err := filepath.Abs(w.Dir)
	if err != nil {
		return &domain.Error{Code: domain.ErrCodeScanFailed, Path: w.Dir, Err: err}
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := fw.Close(); err != nil {
			log.Warn("关闭文件监视器失败", zap.Error(err))
		}
	}()
	if err := fw.Add(dir); err != nil {
		return &domain.Error{Code: domain.ErrCodeScanFailed, Path: dir, Err: err}
	}
	log.Info("开始监视目录", zap.String("dir", logging.SanitizePath(dir)), zap.Duration("debounce", debounce))

	w.rebuild(log, dir, "start")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("停止监视", zap.String("dir", logging.SanitizePath(dir)))
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			log.Debug("目录变化", zap.String("op", ev.Op.String()), zap.String("name", filepath.Base(ev.Name)))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.rebuild(log, dir, "change")

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("文件监视器错误", zap.Error(err))
		}
	}
}

func (w *Watcher) rebuild(log *zap.Logger, dir, reason string) {
	build := w.Build
	if build == nil {
		build = playlist.Build
	}
	res, err := build(dir)
	switch {
	case err == nil:
		log.Info("已重建播放列表", zap.String("reason", reason), zap.Int("count", res.Count))
	case errors.Is(err, playlist.ErrNoVideos):
		log.Info("目录中暂无视频", zap.String("reason", reason))
	default:
		log.Error("重建播放列表失败", zap.String("reason", reason), zap.String("code", domain.Code(err)), zap.Error(err))
	}
	if w.OnBuild != nil {
		w.OnBuild(res, err)
	}
}

// relevant 判断事件是否可能改变视频集合：
// 忽略播放列表自身及其临时文件、非视频文件、纯权限变化。
func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(ev.Name)
	if name == playlist.FileName || strings.HasPrefix(name, fsx.TempPrefix(playlist.FileName)) {
		return false
	}
	_, ok := domain.VideoExt(name)
	return ok
}
