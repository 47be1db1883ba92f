// Package player 定位并启动外部播放器。
//
// 定位策略是可插拔的 Resolver 链（默认：用户指定 > PATH > 固定安装路径），
// 启动只负责 spawn 一个分离的子进程，不等待、不持有句柄。
package player

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// 通过可替换的函数指针，让测试不依赖本机是否装了播放器。
var (
	lookPathFunc = exec.LookPath
	statFunc     = os.Stat
)

// Resolver 尝试定位播放器可执行文件；找不到时 ok=false。
type Resolver interface {
	Name() string
	Locate() (path string, ok bool)
}

// Attempt 记录一次 Resolver 尝试（用于 locate 命令解释“为什么没找到”）。
type Attempt struct {
	Resolver string
	Path     string // 命中时为可执行文件路径
	Found    bool
}

// Chain 按顺序尝试各 Resolver，返回第一个命中。
type Chain []Resolver

func (c Chain) Name() string { return "chain" }

func (c Chain) Locate() (string, bool) {
	p, _, ok := c.LocateTrace()
	return p, ok
}

// LocateTrace 与 Locate 相同，但额外返回每个 Resolver 的尝试记录（命中后停止）。
func (c Chain) LocateTrace() (string, []Attempt, bool) {
	attempts := make([]Attempt, 0, len(c))
	for _, r := range c {
		if r == nil {
			continue
		}
		p, ok := r.Locate()
		attempts = append(attempts, Attempt{Resolver: r.Name(), Path: p, Found: ok})
		if ok {
			return p, attempts, true
		}
	}
	return "", attempts, false
}

// Override 是用户显式指定的播放器路径（CLI / 环境变量 / 配置文件）。
type Override struct {
	Path string
}

func (Override) Name() string { return "override" }

func (o Override) Locate() (string, bool) {
	p := strings.TrimSpace(o.Path)
	if p == "" {
		return "", false
	}
	// 允许只写命令名（例如 "mpv"），交给 PATH 解析。
	if !strings.ContainsAny(p, `/\`) {
		if lp, err := lookPathFunc(p); err == nil {
			return lp, true
		}
		return "", false
	}
	return existingFile(p)
}

// SearchPath 在 PATH 中依次查找 Names。
type SearchPath struct {
	Names []string
}

func (SearchPath) Name() string { return "path" }

func (s SearchPath) Locate() (string, bool) {
	for _, n := range s.Names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if p, err := lookPathFunc(n); err == nil {
			return p, true
		}
	}
	return "", false
}

// FixedPaths 依次检查固定安装位置是否存在。
type FixedPaths struct {
	Candidates []string
}

func (FixedPaths) Name() string { return "fixed" }

func (f FixedPaths) Locate() (string, bool) {
	for _, c := range f.Candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if p, ok := existingFile(c); ok {
			return p, true
		}
	}
	return "", false
}

func existingFile(p string) (string, bool) {
	fi, err := statFunc(p)
	if err != nil || fi.IsDir() {
		return "", false
	}
	return p, true
}

// DefaultNames 是在 PATH 中查找的默认命令名。
var DefaultNames = []string{"vlc"}

// DefaultCandidates 返回当前平台的固定安装路径。
func DefaultCandidates() []string {
	return candidatesFor(runtime.GOOS)
}

func candidatesFor(goos string) []string {
	switch goos {
	case "windows":
		return []string{
			`C:\Program Files\VideoLAN\VLC\vlc.exe`,
			`C:\Program Files (x86)\VideoLAN\VLC\vlc.exe`,
		}
	case "darwin":
		return []string{"/Applications/VLC.app/Contents/MacOS/VLC"}
	default:
		return []string{"/usr/bin/vlc", "/usr/local/bin/vlc", "/snap/bin/vlc"}
	}
}

// DefaultChain 组装默认定位链：override > PATH > 固定路径（extra 追加在平台默认之后）。
// names 为空时使用 DefaultNames。
func DefaultChain(override string, names, extra []string) Chain {
	if len(names) == 0 {
		names = DefaultNames
	}
	candidates := append(DefaultCandidates(), extra...)
	return Chain{
		Override{Path: override},
		SearchPath{Names: names},
		FixedPaths{Candidates: candidates},
	}
}
