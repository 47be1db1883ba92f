package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/playm3u/internal/config"
	"github.com/John-Robertt/playm3u/internal/domain"
	"github.com/John-Robertt/playm3u/internal/logging"
	"github.com/John-Robertt/playm3u/internal/player"
)

// cli 持有一次进程运行的全部 I/O；测试用 bytes.Buffer 替换。
type cli struct {
	ctx context.Context

	stdin          io.Reader
	stdout, stderr io.Writer
	stdinTTY       bool
	stdoutTTY      bool

	cwd    string
	env    config.LookupFunc
	envErr error

	launcher player.Launcher

	// 持久 flag
	configPath string
	logLevel   string
	logFile    string

	code int
}

// usageError 表示命令行用法错误（退出码 2）。
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func (c *cli) execute(args []string) int {
	root := c.newRootCmd()
	root.SetArgs(args)
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	cmd, err := root.ExecuteC()
	if err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(c.stderr, "参数错误：%v\n\n", err)
			if cmd != nil {
				fmt.Fprint(c.stderr, cmd.UsageString())
			}
			return 2
		}
		fmt.Fprintf(c.stderr, "错误：%v\n", err)
		if c.code == 0 {
			return 1
		}
	}
	return c.code
}

func (c *cli) newRootCmd() *cobra.Command {
	var mf makeFlags
	root := &cobra.Command{
		Use:   "playm3u [dir]",
		Short: "按自然顺序为目录中的视频生成 playlist.m3u",
		Long: `扫描目录（不递归）中的视频文件（.mkv .mp4 .avi .webm .mov .flv .wmv），
按自然顺序（ep2 排在 ep10 之前）写出 playlist.m3u，并可选地用播放器打开。

不带子命令时等同于 "playm3u make"。`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMake(cmd, args, mf)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "配置文件路径（默认 <用户配置目录>/playm3u/config.json）")
	pf.StringVar(&c.logLevel, "log-level", "", "日志级别：debug|info|warn|error（默认 warn）")
	pf.StringVar(&c.logFile, "log-file", "", "额外写入 JSON 日志文件（自动轮转）")

	mf.register(root)

	root.AddCommand(
		c.newMakeCmd(),
		c.newWatchCmd(),
		c.newRemoteCmd(),
		c.newLocateCmd(),
	)
	return root
}

// setup 合并配置并构造 logger。返回的 cleanup 必须在命令结束时调用。
func (c *cli) setup(args config.CLIArgs) (config.EffectiveConfig, *zap.Logger, func(), error) {
	if c.envErr != nil {
		return config.EffectiveConfig{}, nil, func() {}, c.envErr
	}
	args.ConfigPath = c.configPath
	args.LogLevel = c.logLevel
	args.LogFile = c.logFile

	env := c.env
	if env == nil {
		env = func(string) (string, bool) { return "", false }
	}
	eff, err := config.LoadEffective(c.cwd, args, env)
	if err != nil {
		return config.EffectiveConfig{}, nil, func() {}, err
	}

	logger, err := logging.New(logging.Config{
		Level:      eff.LogLevel,
		File:       eff.LogFile,
		MaxSizeMB:  eff.LogMaxSizeMB,
		MaxBackups: eff.LogMaxBackups,
		MaxAgeDays: eff.LogMaxAgeDays,
		Compress:   eff.LogCompress,
		Console:    c.stderr,
	})
	if err != nil {
		return config.EffectiveConfig{}, nil, func() {}, &config.Error{Code: config.ErrCodeInvalid, Path: eff.LogFile, Err: err}
	}
	if eff.ConfigPath != "" {
		logger.Debug("已读取配置文件", zap.String("path", logging.SanitizePath(eff.ConfigPath)))
	}
	return eff, logger, func() { _ = logger.Sync() }, nil
}

// failSetup 把配置阶段的错误转成 Report 输出（与正常结果同一契约）。
func (c *cli) failSetup(dir string, err error, forceJSON bool) {
	now := time.Now()
	rep := domain.Report{
		Dir:        dir,
		StartedAt:  now,
		FinishedAt: now,
		Status:     domain.StatusFailed,
		ErrorCode:  config.Code(err),
		ErrorMsg:   err.Error(),
	}
	if rep.ErrorCode == "" {
		rep.ErrorCode = config.ErrCodeInvalid
	}
	rep.Finalize()
	c.emitReport(rep, forceJSON)
	c.code = 1
}

func checkPlay(v string) error {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", config.PlayAsk, config.PlayAlways, config.PlayNever:
		return nil
	default:
		return usagef("--play 只能是 ask|always|never，实际是 %q", v)
	}
}
