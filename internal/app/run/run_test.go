package run

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/John-Robertt/playm3u/internal/config"
	"github.com/John-Robertt/playm3u/internal/domain"
	"github.com/John-Robertt/playm3u/internal/interact"
	"github.com/John-Robertt/playm3u/internal/playlist"
)

type notice struct {
	level interact.Level
	title string
}

// recordingUI 记录所有交互，便于断言“问了什么、提示了什么”。
type recordingUI struct {
	dir       string
	dirOK     bool
	dirErr    error
	answer    bool
	confirmed int
	notices   []notice
}

func (u *recordingUI) ChooseDirectory(ctx context.Context, initial string) (string, bool, error) {
	if u.dirErr != nil {
		return "", false, u.dirErr
	}
	return u.dir, u.dirOK, nil
}

func (u *recordingUI) Confirm(ctx context.Context, title, question string) (bool, error) {
	u.confirmed++
	return u.answer, nil
}

func (u *recordingUI) Notify(level interact.Level, title, message string) {
	u.notices = append(u.notices, notice{level: level, title: title})
}

type stubResolver struct {
	path string
	ok   bool
}

func (stubResolver) Name() string              { return "stub" }
func (r stubResolver) Locate() (string, bool) { return r.path, r.ok }

type stubLauncher struct {
	err      error
	calls    int
	playlist string
	exe      string
}

func (l *stubLauncher) Launch(playlistPath, exe string) error {
	l.calls++
	l.playlist, l.exe = playlistPath, exe
	return l.err
}

func TestExecute_AskYes_Launches(t *testing.T) {
	dir := videoDir(t, "ep10.mkv", "ep2.mkv", "ep1.mkv")
	ui := &recordingUI{answer: true}
	l := &stubLauncher{}
	logger, logs := observedLogger()

	rep := Execute(context.Background(), Options{Dir: dir}, Deps{
		UI:       ui,
		Resolver: stubResolver{path: "/usr/bin/vlc", ok: true},
		Launcher: l,
		Logger:   logger,
	})

	if rep.Status != domain.StatusCreated || !rep.OK() {
		t.Fatalf("期望 created，实际=%+v", rep)
	}
	if rep.Count != 3 || rep.Entries[0] != "ep1.mkv" || rep.Entries[2] != "ep10.mkv" {
		t.Fatalf("条目不符：%v", rep.Entries)
	}
	if ui.confirmed != 1 {
		t.Fatalf("ask 策略应询问一次，实际=%d", ui.confirmed)
	}
	if l.calls != 1 || l.exe != "/usr/bin/vlc" || l.playlist != filepath.Join(dir, playlist.FileName) {
		t.Fatalf("启动参数不符：%+v", l)
	}
	if rep.Launch.Status != domain.LaunchStarted || rep.Launch.Player != "/usr/bin/vlc" {
		t.Fatalf("launch 不符：%+v", rep.Launch)
	}
	if logs.FilterMessage("已启动播放器").Len() != 1 {
		t.Fatalf("期望记录启动日志，实际=%v", logs.All())
	}
}

func TestExecute_AskNo_HintOnly(t *testing.T) {
	dir := videoDir(t, "a.mp4")
	ui := &recordingUI{answer: false}
	l := &stubLauncher{}

	rep := Execute(context.Background(), Options{Dir: dir, Play: config.PlayAsk}, Deps{
		UI: ui, Resolver: stubResolver{path: "/x", ok: true}, Launcher: l,
	})

	if rep.Status != domain.StatusCreated || rep.Launch.Status != domain.LaunchDeclined {
		t.Fatalf("期望 created+declined，实际=%+v", rep)
	}
	if l.calls != 0 {
		t.Fatalf("拒绝后不应启动播放器")
	}
	if len(ui.notices) != 1 || ui.notices[0].level != interact.Info {
		t.Fatalf("期望一条 Info 提示，实际=%+v", ui.notices)
	}
}

func TestExecute_PlayPolicies(t *testing.T) {
	dir := videoDir(t, "a.mp4")

	ui := &recordingUI{}
	l := &stubLauncher{}
	rep := Execute(context.Background(), Options{Dir: dir, Play: config.PlayAlways}, Deps{
		UI: ui, Resolver: stubResolver{path: "/x", ok: true}, Launcher: l,
	})
	if ui.confirmed != 0 || l.calls != 1 || rep.Launch.Status != domain.LaunchStarted {
		t.Fatalf("always：不应询问且应启动，confirmed=%d calls=%d launch=%+v", ui.confirmed, l.calls, rep.Launch)
	}

	ui = &recordingUI{answer: true}
	l = &stubLauncher{}
	rep = Execute(context.Background(), Options{Dir: dir, Play: config.PlayNever}, Deps{
		UI: ui, Resolver: stubResolver{path: "/x", ok: true}, Launcher: l,
	})
	if ui.confirmed != 0 || l.calls != 0 || rep.Launch.Status != domain.LaunchSkipped {
		t.Fatalf("never：不应询问也不应启动，confirmed=%d calls=%d launch=%+v", ui.confirmed, l.calls, rep.Launch)
	}
}

func TestExecute_PlayerNotFound_StaysCreated(t *testing.T) {
	dir := videoDir(t, "a.mp4")
	ui := &recordingUI{}
	logger, logs := observedLogger()

	rep := Execute(context.Background(), Options{Dir: dir, Play: config.PlayAlways}, Deps{
		UI: ui, Resolver: stubResolver{}, Launcher: &stubLauncher{}, Logger: logger,
	})

	if rep.Status != domain.StatusCreated || !rep.OK() {
		t.Fatalf("未找到播放器不应影响 status，实际=%+v", rep)
	}
	if rep.Launch.Status != domain.LaunchFailed || rep.Launch.ErrorCode != domain.ErrCodePlayerNotFound {
		t.Fatalf("launch 不符：%+v", rep.Launch)
	}
	if len(ui.notices) != 1 || ui.notices[0].level != interact.Warning || ui.notices[0].title != "未找到播放器" {
		t.Fatalf("期望一条“未找到播放器”警告，实际=%+v", ui.notices)
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Fatalf("期望一条 warn 日志，实际=%v", logs.All())
	}
}

func TestExecute_LaunchFailed(t *testing.T) {
	dir := videoDir(t, "a.mp4")
	ui := &recordingUI{}
	cause := &domain.Error{Code: domain.ErrCodeLaunchFailed, Path: "/x", Err: errors.New("exec format error")}

	rep := Execute(context.Background(), Options{Dir: dir, Play: config.PlayAlways}, Deps{
		UI: ui, Resolver: stubResolver{path: "/x", ok: true}, Launcher: &stubLauncher{err: cause},
	})

	if rep.Status != domain.StatusCreated {
		t.Fatalf("启动失败不应影响 status，实际=%+v", rep)
	}
	if rep.Launch.ErrorCode != domain.ErrCodeLaunchFailed || rep.Launch.Player != "/x" {
		t.Fatalf("launch 不符：%+v", rep.Launch)
	}
	if len(ui.notices) != 1 || ui.notices[0].title != "无法启动播放器" {
		t.Fatalf("提示不符：%+v", ui.notices)
	}
}

func TestExecute_NoVideos(t *testing.T) {
	dir := videoDir(t, "readme.txt")
	ui := &recordingUI{answer: true}
	l := &stubLauncher{}

	rep := Execute(context.Background(), Options{Dir: dir}, Deps{UI: ui, Resolver: stubResolver{path: "/x", ok: true}, Launcher: l})

	if rep.Status != domain.StatusNoVideos || rep.ErrorCode != domain.ErrCodeNoVideosFound || rep.OK() {
		t.Fatalf("期望 no_videos，实际=%+v", rep)
	}
	if ui.confirmed != 0 || l.calls != 0 {
		t.Fatalf("没有视频时不应询问/启动")
	}
	if len(ui.notices) != 1 || ui.notices[0].level != interact.Warning {
		t.Fatalf("期望一条 Warning，实际=%+v", ui.notices)
	}
	if _, err := os.Stat(filepath.Join(dir, playlist.FileName)); !os.IsNotExist(err) {
		t.Fatalf("不应写出播放列表，stat err=%v", err)
	}
	if rep.Entries == nil || rep.Count != 0 {
		t.Fatalf("entries 应归一为空切片")
	}
}

func TestExecute_ScanFailed(t *testing.T) {
	ui := &recordingUI{}
	logger, logs := observedLogger()

	rep := Execute(context.Background(), Options{Dir: filepath.Join(t.TempDir(), "missing")}, Deps{
		UI: ui, Resolver: stubResolver{}, Launcher: &stubLauncher{}, Logger: logger,
	})

	if rep.Status != domain.StatusFailed || rep.ErrorCode != domain.ErrCodeScanFailed {
		t.Fatalf("期望 failed/scan_failed，实际=%+v", rep)
	}
	if len(ui.notices) != 1 || ui.notices[0].level != interact.Error {
		t.Fatalf("期望一条 Error 提示，实际=%+v", ui.notices)
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Fatalf("期望一条 error 日志，实际=%v", logs.All())
	}
}

func TestExecute_ChooseDirectory(t *testing.T) {
	dir := videoDir(t, "a.mp4")

	ui := &recordingUI{dir: dir, dirOK: true}
	rep := Execute(context.Background(), Options{Play: config.PlayNever}, Deps{UI: ui, Resolver: stubResolver{}, Launcher: &stubLauncher{}})
	if rep.Status != domain.StatusCreated || rep.Dir != dir {
		t.Fatalf("期望使用所选目录，实际=%+v", rep)
	}

	ui = &recordingUI{}
	rep = Execute(context.Background(), Options{}, Deps{UI: ui, Resolver: stubResolver{}, Launcher: &stubLauncher{}})
	if rep.Status != domain.StatusCancelled || !rep.OK() {
		t.Fatalf("取消应得到 cancelled，实际=%+v", rep)
	}
	if len(ui.notices) != 0 {
		t.Fatalf("取消不应有任何提示，实际=%+v", ui.notices)
	}

	ui = &recordingUI{dirErr: context.Canceled}
	rep = Execute(context.Background(), Options{}, Deps{UI: ui, Resolver: stubResolver{}, Launcher: &stubLauncher{}})
	if rep.Status != domain.StatusCancelled {
		t.Fatalf("中断应得到 cancelled，实际=%+v", rep)
	}
}

func TestExecute_WithFixedUI(t *testing.T) {
	dir := videoDir(t, "b2.mp4", "a10.mp4", "a2.mp4")

	rep := Execute(context.Background(), Options{InitialDir: dir}, Deps{
		UI:       interact.Fixed{Answer: false},
		Resolver: stubResolver{},
		Launcher: &stubLauncher{},
	})
	want := []string{"a2.mp4", "a10.mp4", "b2.mp4"}
	if rep.Status != domain.StatusCreated || len(rep.Entries) != len(want) {
		t.Fatalf("结果不符：%+v", rep)
	}
	for i := range want {
		if rep.Entries[i] != want[i] {
			t.Fatalf("第 %d 项期望 %q，实际 %q", i, want[i], rep.Entries[i])
		}
	}
	if rep.StartedAt.IsZero() || rep.FinishedAt.Before(rep.StartedAt) {
		t.Fatalf("时间戳不符：%v %v", rep.StartedAt, rep.FinishedAt)
	}
}

func TestExecute_ReportIsFinalized(t *testing.T) {
	dir := videoDir(t, "ep1.mkv", "ep2.mkv")

	rep := Execute(context.Background(), Options{Dir: dir, Play: config.PlayNever}, Deps{UI: interact.Fixed{}})
	if rep.Count != 2 || rep.Count != len(rep.Entries) {
		t.Fatalf("count 应等于写入条目数，实际 count=%d entries=%v", rep.Count, rep.Entries)
	}
	if rep.Launch.Status != domain.LaunchSkipped {
		t.Fatalf("never 策略 launch.status 应为 skipped，实际=%q", rep.Launch.Status)
	}
	if rep.FinishedAt.IsZero() || rep.FinishedAt.Before(rep.StartedAt) {
		t.Fatalf("finished_at 未填写：started=%v finished=%v", rep.StartedAt, rep.FinishedAt)
	}
	if rep.StartedAt.Location() != time.UTC || rep.FinishedAt.Location() != time.UTC {
		t.Fatalf("时间应统一为 UTC：%v %v", rep.StartedAt.Location(), rep.FinishedAt.Location())
	}

	empty := Execute(context.Background(), Options{Dir: t.TempDir()}, Deps{UI: interact.Fixed{}})
	if empty.Entries == nil || empty.Count != 0 || empty.FinishedAt.IsZero() {
		t.Fatalf("no_videos 也必须归一：%+v", empty)
	}
	b, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal 失败：%v", err)
	}
	if !strings.Contains(string(b), `"entries":[]`) || !strings.Contains(string(b), `"launch":{"status":"skipped"`) {
		t.Fatalf("JSON 不符：%s", b)
	}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func videoDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("写入文件失败 %q：%v", n, err)
		}
	}
	return dir
}
