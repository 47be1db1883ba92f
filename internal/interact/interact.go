// Package interact 把“选目录 / 确认 / 提示”收敛为一个窄接口。
//
// 核心（natsort/playlist）从不调用这里；只有编排层（app/run）通过 UserInteraction 与用户交互，
// 因此终端提示、脚本化应答或任意 GUI 工具包都可以替换实现。
package interact

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level 是提示的严重程度。
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "警告"
	case Error:
		return "错误"
	default:
		return "提示"
	}
}

// UserInteraction 是编排层与用户之间的全部交互。
type UserInteraction interface {
	// ChooseDirectory 让用户选择目录；ok=false 表示取消（不做任何事）。
	ChooseDirectory(ctx context.Context, initial string) (dir string, ok bool, err error)
	// Confirm 询问是/否。
	Confirm(ctx context.Context, title, question string) (bool, error)
	// Notify 展示一条消息，不等待用户。
	Notify(level Level, title, message string)
}

// Terminal 是基于行输入的终端实现。
type Terminal struct {
	Out io.Writer

	mu sync.Mutex
	in *bufio.Reader
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{Out: out, in: bufio.NewReader(in)}
}

func (t *Terminal) ChooseDirectory(ctx context.Context, initial string) (string, bool, error) {
	prompt := "选择视频目录（q 取消）"
	if initial != "" {
		prompt += fmt.Sprintf(" [%s]", initial)
	}
	line, eof, err := t.ask(ctx, prompt+": ")
	if err != nil {
		return "", false, err
	}
	switch {
	case strings.EqualFold(line, "q"), strings.EqualFold(line, "quit"):
		return "", false, nil
	case line != "":
		return expandHome(trimQuotes(line)), true, nil
	case eof || initial == "":
		// 空输入且没有默认值：视为取消。
		return "", false, nil
	default:
		return initial, true, nil
	}
}

func (t *Terminal) Confirm(ctx context.Context, title, question string) (bool, error) {
	t.mu.Lock()
	fmt.Fprintf(t.Out, "\n== %s ==\n%s\n", title, question)
	t.mu.Unlock()

	for {
		line, eof, err := t.ask(ctx, "[Y/n]: ")
		if err != nil {
			return false, err
		}
		if eof && line == "" {
			return false, nil
		}
		switch strings.ToLower(line) {
		case "", "y", "yes", "是":
			return true, nil
		case "n", "no", "否":
			return false, nil
		}
		if eof {
			return false, nil
		}
	}
}

func (t *Terminal) Notify(level Level, title, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.Out, "[%s] %s\n", level, title)
	if message != "" {
		for _, l := range strings.Split(message, "\n") {
			fmt.Fprintf(t.Out, "  %s\n", l)
		}
	}
}

// ask 打印 prompt 并读取一行（去掉首尾空白）。eof=true 表示输入已结束。
func (t *Terminal) ask(ctx context.Context, prompt string) (line string, eof bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.Out, prompt)
	s, rerr := t.in.ReadString('\n')
	if rerr != nil && rerr != io.EOF {
		return "", false, rerr
	}
	if rerr == io.EOF {
		// 输入结束时补一个换行，保持后续输出对齐。
		fmt.Fprintln(t.Out)
	}
	return strings.TrimSpace(s), rerr == io.EOF, nil
}

// trimQuotes 去掉从文件管理器拖进终端时常见的成对引号。
func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// expandHome 展开 "~" 与 "~/..."；shell 不会替用户展开交互输入里的 "~"。
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return p
	}
	return filepath.Join(home, p[1:])
}

// Fixed 是非交互实现：目录与确认结果预先给定，提示写到 Out（可为 nil）。
type Fixed struct {
	Dir    string
	Answer bool
	Out    io.Writer
}

func (f Fixed) ChooseDirectory(ctx context.Context, initial string) (string, bool, error) {
	if f.Dir != "" {
		return f.Dir, true, nil
	}
	if initial != "" {
		return initial, true, nil
	}
	return "", false, nil
}

func (f Fixed) Confirm(ctx context.Context, title, question string) (bool, error) {
	return f.Answer, nil
}

func (f Fixed) Notify(level Level, title, message string) {
	if f.Out == nil {
		return
	}
	fmt.Fprintf(f.Out, "[%s] %s", level, title)
	if message != "" {
		fmt.Fprintf(f.Out, "：%s", strings.ReplaceAll(message, "\n", " "))
	}
	fmt.Fprintln(f.Out)
}
