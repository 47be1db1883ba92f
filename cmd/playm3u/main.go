package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/John-Robertt/playm3u/internal/config"
	"github.com/John-Robertt/playm3u/internal/player"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newCLI(ctx).execute(os.Args[1:])
	stop()
	os.Exit(code)
}

func newCLI(ctx context.Context) *cli {
	c := &cli{
		ctx:       ctx,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		stdinTTY:  isTTY(os.Stdin),
		stdoutTTY: isTTY(os.Stdout),
		launcher:  player.Detached{},
	}
	if wd, err := os.Getwd(); err == nil {
		c.cwd = wd
	}
	env, err := config.EnvWithDotEnv(".env")
	if err != nil {
		// .env 损坏不阻断运行：退回进程环境，错误在加载配置时再报告一次即可。
		env = os.LookupEnv
		c.envErr = err
	}
	c.env = env
	return c
}

func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
