package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/John-Robertt/playm3u/internal/domain"
)

// emitReport 遵守输出契约：
// - stdout 是 TTY 且未要求 --json：人类可读摘要
// - 否则：stdout 必须且仅输出一个 Report JSON，摘要走 stderr
func (c *cli) emitReport(rep domain.Report, forceJSON bool) {
	if c.stdoutTTY && !forceJSON {
		c.printSummary(rep)
		return
	}

	enc := json.NewEncoder(c.stdout)
	_ = enc.Encode(rep)
	fmt.Fprintln(c.stderr, summaryLine(rep))
}

func (c *cli) printSummary(rep domain.Report) {
	w := c.stdout
	switch rep.Status {
	case domain.StatusCreated:
		fmt.Fprintf(w, "已生成：%s（%d 集）\n", rep.Playlist, rep.Count)
		for i, name := range rep.Entries {
			fmt.Fprintf(w, "  %3d. %s\n", i+1, name)
		}
		switch rep.Launch.Status {
		case domain.LaunchStarted:
			fmt.Fprintf(w, "播放器：已启动 %s\n", rep.Launch.Player)
		case domain.LaunchFailed:
			fmt.Fprintf(c.stderr, "播放器：%s: %s\n", rep.Launch.ErrorCode, rep.Launch.ErrorMsg)
		}
	case domain.StatusCancelled:
		fmt.Fprintln(w, "已取消")
	default:
		key := rep.Dir
		if key == "" {
			key = "<unknown>"
		}
		fmt.Fprintf(c.stderr, "%s %s: %s\n", key, rep.ErrorCode, rep.ErrorMsg)
	}
}

func summaryLine(rep domain.Report) string {
	return fmt.Sprintf("完成：status=%s count=%d launch=%s", rep.Status, rep.Count, rep.Launch.Status)
}

// abs 以 cwd 为基准解析 p；p 已是绝对路径时原样返回。
func (c *cli) abs(p string) string {
	if filepath.IsAbs(p) || c.cwd == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.cwd, p)
}
