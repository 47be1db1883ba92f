package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/playm3u/internal/app/run"
	"github.com/John-Robertt/playm3u/internal/config"
	"github.com/John-Robertt/playm3u/internal/domain"
	"github.com/John-Robertt/playm3u/internal/infra/httpx"
	"github.com/John-Robertt/playm3u/internal/interact"
	"github.com/John-Robertt/playm3u/internal/player"
	"github.com/John-Robertt/playm3u/internal/playlist"
	"github.com/John-Robertt/playm3u/internal/remote"
	"github.com/John-Robertt/playm3u/internal/watch"
)

type makeFlags struct {
	play       *string
	player     *string
	initialDir *string
	json       *bool
}

func (f *makeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	f.play = fs.String("play", "", "生成后是否打开播放器：ask|always|never（默认 ask）")
	f.player = fs.String("player", "", "播放器可执行文件（路径或命令名）")
	f.initialDir = fs.String("initial-dir", "", "交互选择目录时的默认值")
	f.json = fs.Bool("json", false, "即使 stdout 是终端也输出 JSON Report")
}

func (c *cli) newMakeCmd() *cobra.Command {
	var mf makeFlags
	cmd := &cobra.Command{
		Use:   "make [dir]",
		Short: "为目录生成 playlist.m3u（可选打开播放器）",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMake(cmd, args, mf)
		},
	}
	mf.register(cmd)
	return cmd
}

func (c *cli) runMake(cmd *cobra.Command, args []string, mf makeFlags) error {
	if err := checkPlay(*mf.play); err != nil {
		return err
	}
	dir := ""
	if len(args) == 1 && args[0] != "" {
		dir = c.abs(args[0])
	}
	if dir == "" && !c.stdinTTY {
		return usagef("未指定目录，且 stdin 不是终端（无法交互选择）")
	}

	eff, logger, cleanup, err := c.setup(config.CLIArgs{
		Play:       *mf.play,
		Player:     *mf.player,
		InitialDir: *mf.initialDir,
	})
	defer cleanup()
	if err != nil {
		c.failSetup(dir, err, *mf.json)
		return nil
	}

	// 提示与询问一律走 stderr：stdout 只留给 Report。
	var ui interact.UserInteraction = interact.Fixed{Out: c.stderr}
	if c.stdinTTY {
		ui = interact.NewTerminal(c.stdin, c.stderr)
	}

	rep := run.Execute(c.ctx, run.Options{
		Dir:        dir,
		InitialDir: eff.InitialDir,
		Play:       eff.Play,
	}, run.Deps{
		UI:       ui,
		Resolver: player.DefaultChain(eff.PlayerPath, eff.PlayerNames, eff.PlayerCandidates),
		Launcher: c.launcher,
		Logger:   logger,
	})

	c.emitReport(rep, *mf.json)
	if !rep.OK() {
		c.code = 1
	}
	return nil
}

func (c *cli) newWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "监视目录，视频变化时自动重建 playlist.m3u（Ctrl-C 退出）",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.cwd
			if len(args) == 1 {
				dir = c.abs(args[0])
			}
			if debounce < 0 {
				return usagef("--debounce 不能为负数")
			}

			eff, logger, cleanup, err := c.setup(config.CLIArgs{Debounce: debounce})
			defer cleanup()
			if err != nil {
				c.failSetup(dir, err, false)
				return nil
			}

			w := &watch.Watcher{
				Dir:      dir,
				Debounce: eff.Debounce,
				Logger:   logger,
				OnBuild:  c.printBuild,
			}
			if err := w.Run(c.ctx); err != nil {
				logger.Error("无法监视目录", zap.Error(err))
				fmt.Fprintf(c.stderr, "无法监视目录：%v\n", err)
				c.code = 1
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "合并连续变化的窗口（默认 500ms）")
	return cmd
}

func (c *cli) printBuild(res playlist.Result, err error) {
	ts := time.Now().Format("15:04:05")
	switch {
	case err == nil:
		fmt.Fprintf(c.stderr, "[%s] 已更新 %s（%d 集）\n", ts, res.Path, res.Count)
	case domain.Code(err) == domain.ErrCodeNoVideosFound:
		fmt.Fprintf(c.stderr, "[%s] 暂无视频，等待中…\n", ts)
	default:
		fmt.Fprintf(c.stderr, "[%s] 更新失败：%v\n", ts, err)
	}
}

func (c *cli) newRemoteCmd() *cobra.Command {
	var (
		out      string
		proxy    string
		jsonFlag bool
	)
	cmd := &cobra.Command{
		Use:   "remote URL",
		Short: "从 HTTP 目录索引页生成播放列表（条目为绝对 URL）",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageURL := args[0]
			if out == "" {
				return usagef("-o/--output 不能为空")
			}

			eff, logger, cleanup, err := c.setup(config.CLIArgs{ProxyURL: proxy})
			defer cleanup()
			if err != nil {
				c.failSetup(pageURL, err, jsonFlag)
				return nil
			}

			rep := domain.Report{Dir: pageURL, StartedAt: time.Now()}
			client, err := httpx.NewClient(httpx.Options{ProxyURL: eff.ProxyURL})
			if err == nil {
				var res playlist.Result
				res, err = remote.Build(c.ctx, client, pageURL, c.abs(out))
				if err == nil {
					rep.Status = domain.StatusCreated
					rep.Playlist = res.Path
					rep.Entries = res.Names
					logger.Info("已生成远程播放列表", zap.String("url", pageURL), zap.Int("count", res.Count))
				}
			}
			if err != nil {
				rep.Fail(err)
				logger.Warn("生成远程播放列表失败", zap.String("url", pageURL), zap.String("code", domain.Code(err)), zap.Error(err))
			}
			rep.FinishedAt = time.Now()
			rep.Finalize()

			c.emitReport(rep, jsonFlag)
			if !rep.OK() {
				c.code = 1
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&out, "output", "o", playlist.FileName, "输出文件（相对当前目录）")
	fs.StringVar(&proxy, "proxy", "", "HTTP 代理，例如 http://127.0.0.1:7890")
	fs.BoolVar(&jsonFlag, "json", false, "即使 stdout 是终端也输出 JSON Report")
	return cmd
}

func (c *cli) newLocateCmd() *cobra.Command {
	var playerFlag string
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "显示播放器定位过程与结果",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, _, cleanup, err := c.setup(config.CLIArgs{Player: playerFlag})
			defer cleanup()
			if err != nil {
				fmt.Fprintf(c.stderr, "%v\n", err)
				c.code = 1
				return nil
			}

			chain := player.DefaultChain(eff.PlayerPath, eff.PlayerNames, eff.PlayerCandidates)
			exe, attempts, ok := chain.LocateTrace()
			for _, a := range attempts {
				mark := "未命中"
				if a.Found {
					mark = "命中 " + a.Path
				}
				fmt.Fprintf(c.stdout, "%-9s %s\n", a.Resolver, mark)
			}
			if !ok {
				fmt.Fprintln(c.stdout, "结果：未找到播放器（可用 --player 或配置 player.path 指定）")
				c.code = 1
				return nil
			}
			fmt.Fprintf(c.stdout, "结果：%s\n", exe)
			return nil
		},
	}
	cmd.Flags().StringVar(&playerFlag, "player", "", "播放器可执行文件（路径或命令名）")
	return cmd
}
