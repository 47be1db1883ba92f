package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/John-Robertt/playm3u/internal/domain"
	"github.com/John-Robertt/playm3u/internal/infra/fsx"
	"github.com/John-Robertt/playm3u/internal/playlist"
)

func TestRelevant(t *testing.T) {
	cases := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/d/ep1.mkv", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/d/EP1.MP4", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/d/ep1.mkv", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/d/ep1.mkv", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/d/ep1.mkv", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/d/" + playlist.FileName, Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/d/" + fsx.TempPrefix(playlist.FileName) + "123", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/d/notes.txt", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/d/.mkv", Op: fsnotify.Create}, false},
	}
	for _, tc := range cases {
		if got := relevant(tc.ev); got != tc.want {
			t.Fatalf("%v：期望 %v，实际 %v", tc.ev, tc.want, got)
		}
	}
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ep1.mkv"))

	var (
		mu      sync.Mutex
		results []int
		errs    []error
	)
	w := &Watcher{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		OnBuild: func(res playlist.Result, err error) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, res.Count)
			errs = append(errs, err)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// 等待首次构建完成。
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) >= 1
	})

	writeFile(t, filepath.Join(dir, "ep2.mkv"))
	writeFile(t, filepath.Join(dir, "ep10.mkv"))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) >= 2 && results[len(results)-1] == 3
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("取消后应返回 nil，实际=%v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("取消后 Run 未退出")
	}

	mu.Lock()
	defer mu.Unlock()
	if results[0] != 1 || errs[0] != nil {
		t.Fatalf("首次构建不符：count=%d err=%v", results[0], errs[0])
	}

	b, err := os.ReadFile(filepath.Join(dir, playlist.FileName))
	if err != nil {
		t.Fatalf("读取播放列表失败：%v", err)
	}
	want := "#EXTM3U\n#EXTINF:-1, ep1.mkv\nep1.mkv\n#EXTINF:-1, ep2.mkv\nep2.mkv\n#EXTINF:-1, ep10.mkv\nep10.mkv\n"
	if string(b) != want {
		t.Fatalf("内容不符：\n%s", b)
	}
}

func TestWatcher_IgnoresOwnWrites(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp4"))

	var (
		mu    sync.Mutex
		count int
	)
	w := &Watcher{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		OnBuild: func(playlist.Result, error) {
			mu.Lock()
			count++
			mu.Unlock()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	// 首次构建写出的 playlist.m3u 与无关文件都不应触发重建。
	writeFile(t, filepath.Join(dir, "notes.txt"))
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("期望只构建 1 次，实际 %d 次", count)
	}
}

func TestWatcher_NoVideosIsNotFatal(t *testing.T) {
	dir := t.TempDir()

	got := make(chan error, 4)
	w := &Watcher{Dir: dir, Debounce: 50 * time.Millisecond, OnBuild: func(_ playlist.Result, err error) { got <- err }}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-got:
		if domain.Code(err) != domain.ErrCodeNoVideosFound {
			t.Fatalf("期望 %q，实际=%v", domain.ErrCodeNoVideosFound, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("首次构建未发生")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("没有视频不应使 Run 失败：%v", err)
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	w := &Watcher{Dir: filepath.Join(t.TempDir(), "missing")}
	err := w.Run(context.Background())
	if domain.Code(err) != domain.ErrCodeScanFailed {
		t.Fatalf("期望 %q，实际=%v", domain.ErrCodeScanFailed, err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("等待超时")
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
