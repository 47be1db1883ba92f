package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// ErrCodeNotFound 表示显式指定（--config / PLAYM3U_CONFIG）的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件/环境变量无法读取、解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	PlayAsk    = "ask"
	PlayAlways = "always"
	PlayNever  = "never"
)

const (
	// DefaultPlay 与原始交互一致：生成后询问是否打开。
	DefaultPlay = PlayAsk
	// DefaultLogLevel 只报异常；正常结果由 UI/Report 呈现。
	DefaultLogLevel = "warn"
	// DefaultDebounce 是 watch 模式合并连续事件的窗口。
	DefaultDebounce = 500 * time.Millisecond

	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28
)

const (
	EnvConfig     = "PLAYM3U_CONFIG"
	EnvPlay       = "PLAYM3U_PLAY"
	EnvPlayer     = "PLAYM3U_PLAYER"
	EnvInitialDir = "PLAYM3U_INITIAL_DIR"
	EnvLogLevel   = "PLAYM3U_LOG_LEVEL"
	EnvLogFile    = "PLAYM3U_LOG_FILE"
	EnvProxy      = "PLAYM3U_PROXY"
	EnvDebounceMS = "PLAYM3U_DEBOUNCE_MS"
)

// 通过可替换的函数指针，让测试不依赖真实的用户配置目录。
var userConfigDir = os.UserConfigDir

// CLIArgs 是 CLI 暴露的覆盖项；空值（或 0）表示“未指定”。
type CLIArgs struct {
	ConfigPath string
	Play       string
	Player     string
	InitialDir string
	LogLevel   string
	LogFile    string
	ProxyURL   string
	Debounce   time.Duration
}

// FileConfig 对应 config.json 的解析结构。只读：本工具从不回写配置。
type FileConfig struct {
	InitialDir string        `json:"initial_dir"`
	Play       string        `json:"play"`
	Player     *PlayerConfig `json:"player"`
	Log        *LogConfig    `json:"log"`
	Proxy      *ProxyConfig  `json:"proxy"`
	Watch      *WatchConfig  `json:"watch"`
}

type PlayerConfig struct {
	Path       string   `json:"path"`
	Names      []string `json:"names"`
	Candidates []string `json:"candidates"`
}

type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

type WatchConfig struct {
	DebounceMS int `json:"debounce_ms"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	InitialDir string
	Play       string

	PlayerPath       string
	PlayerNames      []string
	PlayerCandidates []string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	ProxyURL string
	Debounce time.Duration
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：%q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：%q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LookupFunc 查询一个环境变量（语义同 os.LookupEnv）。
type LookupFunc func(key string) (string, bool)

// EnvWithDotEnv 返回“进程环境优先，其次 .env 文件”的查询函数。
//
// 与 godotenv.Load 的优先级一致（不覆盖已存在的环境变量），但不修改进程环境。
// .env 不存在不算错误。
func EnvWithDotEnv(path string) (LookupFunc, error) {
	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.LookupEnv, nil
		}
		return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vals[key]
		return v, ok
	}, nil
}

// LoadEffective 发现并读取配置文件，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) --config 或 PLAYM3U_CONFIG 指定：必须存在
// 2) 否则尝试 <UserConfigDir>/playm3u/config.json（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量（含 .env）> 配置文件 > 默认值。
// 相对路径：来自配置文件的相对配置文件所在目录，来自 CLI/环境变量的相对 cwd。
func LoadEffective(cwd string, cli CLIArgs, env LookupFunc) (EffectiveConfig, error) {
	if env == nil {
		env = os.LookupEnv
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath, required := discover(cwdAbs, cli, env)

	var fc FileConfig
	used := ""
	if cfgPath != "" {
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists && required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		if exists {
			used = cfgPath
		}
	}

	return merge(cwdAbs, used, cli, env, fc)
}

func discover(cwdAbs string, cli CLIArgs, env LookupFunc) (path string, required bool) {
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		return absCleanFrom(cwdAbs, p), true
	}
	if p, ok := env(EnvConfig); ok && strings.TrimSpace(p) != "" {
		return absCleanFrom(cwdAbs, p), true
	}
	dir, err := userConfigDir()
	if err != nil || dir == "" {
		return "", false
	}
	return filepath.Join(dir, "playm3u", "config.json"), false
}

func merge(cwdAbs, cfgPath string, cli CLIArgs, env LookupFunc, fc FileConfig) (EffectiveConfig, error) {
	fileBase := cwdAbs
	if cfgPath != "" {
		fileBase = filepath.Dir(cfgPath)
	}
	errPath := cfgPath
	if errPath == "" {
		errPath = "<env/cli>"
	}

	eff := EffectiveConfig{
		ConfigPath:    cfgPath,
		Play:          DefaultPlay,
		LogLevel:      DefaultLogLevel,
		LogMaxSizeMB:  DefaultLogMaxSizeMB,
		LogMaxBackups: DefaultLogMaxBackups,
		LogMaxAgeDays: DefaultLogMaxAgeDays,
		Debounce:      DefaultDebounce,
	}

	// 配置文件层。
	if v := strings.TrimSpace(fc.InitialDir); v != "" {
		eff.InitialDir = absCleanFrom(fileBase, v)
	}
	if v := strings.TrimSpace(fc.Play); v != "" {
		eff.Play = strings.ToLower(v)
	}
	if fc.Player != nil {
		if v := strings.TrimSpace(fc.Player.Path); v != "" {
			eff.PlayerPath = pathOrCommand(fileBase, v)
		}
		eff.PlayerNames = nonEmpty(fc.Player.Names)
		eff.PlayerCandidates = nonEmpty(fc.Player.Candidates)
	}
	if fc.Log != nil {
		if v := strings.TrimSpace(fc.Log.Level); v != "" {
			eff.LogLevel = strings.ToLower(v)
		}
		if v := strings.TrimSpace(fc.Log.File); v != "" {
			eff.LogFile = absCleanFrom(fileBase, v)
		}
		if fc.Log.MaxSizeMB > 0 {
			eff.LogMaxSizeMB = fc.Log.MaxSizeMB
		}
		if fc.Log.MaxBackups > 0 {
			eff.LogMaxBackups = fc.Log.MaxBackups
		}
		if fc.Log.MaxAgeDays > 0 {
			eff.LogMaxAgeDays = fc.Log.MaxAgeDays
		}
		eff.LogCompress = fc.Log.Compress
	}
	if fc.Proxy != nil {
		eff.ProxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if fc.Watch != nil && fc.Watch.DebounceMS != 0 {
		eff.Debounce = time.Duration(fc.Watch.DebounceMS) * time.Millisecond
	}

	// 环境变量层。
	if v, ok := lookupTrim(env, EnvInitialDir); ok {
		eff.InitialDir = absCleanFrom(cwdAbs, v)
	}
	if v, ok := lookupTrim(env, EnvPlay); ok {
		eff.Play = strings.ToLower(v)
	}
	if v, ok := lookupTrim(env, EnvPlayer); ok {
		eff.PlayerPath = pathOrCommand(cwdAbs, v)
	}
	if v, ok := lookupTrim(env, EnvLogLevel); ok {
		eff.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookupTrim(env, EnvLogFile); ok {
		eff.LogFile = absCleanFrom(cwdAbs, v)
	}
	if v, ok := lookupTrim(env, EnvProxy); ok {
		eff.ProxyURL = v
	}
	if v, ok := lookupTrim(env, EnvDebounceMS); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: EnvDebounceMS, Err: err}
		}
		eff.Debounce = time.Duration(ms) * time.Millisecond
	}

	// CLI 层。
	if v := strings.TrimSpace(cli.InitialDir); v != "" {
		eff.InitialDir = absCleanFrom(cwdAbs, v)
	}
	if v := strings.TrimSpace(cli.Play); v != "" {
		eff.Play = strings.ToLower(v)
	}
	if v := strings.TrimSpace(cli.Player); v != "" {
		eff.PlayerPath = pathOrCommand(cwdAbs, v)
	}
	if v := strings.TrimSpace(cli.LogLevel); v != "" {
		eff.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(cli.LogFile); v != "" {
		eff.LogFile = absCleanFrom(cwdAbs, v)
	}
	if v := strings.TrimSpace(cli.ProxyURL); v != "" {
		eff.ProxyURL = v
	}
	if cli.Debounce != 0 {
		eff.Debounce = cli.Debounce
	}

	if err := validate(&eff); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: errPath, Err: err}
	}
	return eff, nil
}

func validate(eff *EffectiveConfig) error {
	switch eff.Play {
	case PlayAsk, PlayAlways, PlayNever:
	default:
		return fmt.Errorf("play 只能是 ask|always|never，实际是 %q", eff.Play)
	}

	switch eff.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level 只能是 debug|info|warn|error，实际是 %q", eff.LogLevel)
	}

	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil {
			return fmt.Errorf("proxy.url 无效：%w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("proxy.url 必须包含 scheme 与 host：%q", eff.ProxyURL)
		}
	}

	// 范围 [50ms, 60s]；超出截断。
	if eff.Debounce < 50*time.Millisecond {
		eff.Debounce = 50 * time.Millisecond
	}
	if eff.Debounce > time.Minute {
		eff.Debounce = time.Minute
	}
	return nil
}

func lookupTrim(env LookupFunc, key string) (string, bool) {
	v, ok := env(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func nonEmpty(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out
}

// pathOrCommand：不含路径分隔符的值视为命令名（交给 PATH 解析），原样保留。
func pathOrCommand(base, p string) string {
	if !strings.ContainsAny(p, `/\`) && !strings.HasPrefix(p, "~") {
		return p
	}
	return absCleanFrom(base, p)
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute（支持 "~" 开头）。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = expandHome(p)
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

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

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
