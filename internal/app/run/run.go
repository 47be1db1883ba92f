// Package run 编排一次“选目录 → 生成播放列表 → 按策略打开播放器”。
//
// 只有这里调用 UserInteraction；playlist/player 核心只返回结构化结果。
package run

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/playm3u/internal/config"
	"github.com/John-Robertt/playm3u/internal/domain"
	"github.com/John-Robertt/playm3u/internal/interact"
	"github.com/John-Robertt/playm3u/internal/logging"
	"github.com/John-Robertt/playm3u/internal/player"
	"github.com/John-Robertt/playm3u/internal/playlist"
)

// Options 是一次运行的输入。Play 取 config.PlayAsk/PlayAlways/PlayNever，空值视为 ask。
type Options struct {
	Dir        string
	InitialDir string
	Play       string
}

// Deps 是外部依赖；Logger 可为 nil。
type Deps struct {
	UI       interact.UserInteraction
	Resolver player.Resolver
	Launcher player.Launcher
	Logger   *zap.Logger
}

// Execute 执行一次运行，并返回对外稳定的 Report。
//
// 播放器相关的失败（未找到/启动失败）只降级为提示，Report.Status 保持 created。
// 返回命名结果：defer 里的 Finalize 作用于返回值。
func Execute(ctx context.Context, opts Options, deps Deps) (rep domain.Report) {
	log := logging.OrNop(deps.Logger)
	rep.StartedAt = time.Now()
	defer func() {
		rep.FinishedAt = time.Now()
		rep.Finalize()
	}()

	dir := opts.Dir
	if dir == "" {
		chosen, ok, err := deps.UI.ChooseDirectory(ctx, opts.InitialDir)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info("选择目录被中断", zap.Error(err))
				rep.Status = domain.StatusCancelled
				return rep
			}
			log.Error("选择目录失败", zap.Error(err))
			rep.Fail(err)
			deps.UI.Notify(interact.Error, "无法选择目录", err.Error())
			return rep
		}
		if !ok {
			log.Info("用户取消了目录选择")
			rep.Status = domain.StatusCancelled
			return rep
		}
		dir = chosen
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	rep.Dir = dir

	started := time.Now()
	res, err := playlist.Build(dir)
	if err != nil {
		rep.Fail(err)
		switch domain.Code(err) {
		case domain.ErrCodeNoVideosFound:
			log.Warn("目录中没有视频", zap.String("dir", logging.SanitizePath(dir)))
			deps.UI.Notify(interact.Warning, "没有找到视频",
				fmt.Sprintf("%s\n支持的扩展名：%s", dir, strings.Join(domain.VideoExtensions, " ")))
		default:
			log.Error("生成播放列表失败",
				zap.String("dir", logging.SanitizePath(dir)),
				zap.String("code", domain.Code(err)),
				zap.Error(err))
			deps.UI.Notify(interact.Error, "生成播放列表失败", err.Error())
		}
		return rep
	}

	rep.Status = domain.StatusCreated
	rep.Playlist = res.Path
	rep.Entries = res.Names
	log.Info("已生成播放列表",
		zap.String("playlist", logging.SanitizePath(res.Path)),
		zap.Int("count", res.Count),
		zap.Duration("dur", time.Since(started)))

	switch opts.Play {
	case config.PlayNever:
		log.Debug("按策略不打开播放器", zap.String("play", opts.Play))
		deps.UI.Notify(interact.Info, "播放列表已生成", manualHint(res))
		return rep
	case config.PlayAlways:
	default:
		yes, err := deps.UI.Confirm(ctx, "播放列表已生成",
			fmt.Sprintf("共 %d 集。现在用播放器打开吗？", res.Count))
		if err != nil {
			log.Info("确认被中断", zap.Error(err))
			yes = false
		}
		if !yes {
			rep.Launch.Status = domain.LaunchDeclined
			deps.UI.Notify(interact.Info, "未打开播放器", manualHint(res))
			return rep
		}
	}

	exe, err := player.Open(deps.Resolver, deps.Launcher, res.Path)
	rep.Launch.Player = exe
	if err != nil {
		rep.Launch.Status = domain.LaunchFailed
		rep.Launch.ErrorCode = domain.Code(err)
		rep.Launch.ErrorMsg = err.Error()

		title := "无法启动播放器"
		if errors.Is(err, player.ErrNotFound) {
			title = "未找到播放器"
		}
		log.Warn(title, zap.String("code", rep.Launch.ErrorCode), zap.String("player", exe), zap.Error(err))
		deps.UI.Notify(interact.Warning, title, manualHint(res))
		return rep
	}

	rep.Launch.Status = domain.LaunchStarted
	log.Info("已启动播放器", zap.String("player", exe), zap.String("playlist", logging.SanitizePath(res.Path)))
	return rep
}

func manualHint(res playlist.Result) string {
	return fmt.Sprintf("播放列表：%s\n可以用任意支持 M3U 的播放器（如 VLC）手动打开。", res.Path)
}
