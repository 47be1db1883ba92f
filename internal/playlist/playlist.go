// Package playlist 扫描目录中的视频文件，按自然顺序写出 playlist.m3u。
//
// 核心只返回结构化结果（Result 或 *domain.Error），从不直接与用户交互。
package playlist

import (
	"errors"
	"path/filepath"

	"github.com/John-Robertt/playm3u/internal/domain"
	"github.com/John-Robertt/playm3u/internal/infra/fsx"
	"github.com/John-Robertt/playm3u/internal/scan"
)

// FileName 是写在被扫描目录下的播放列表文件名（存在则覆盖）。
const FileName = "playlist.m3u"

// ErrNoVideos 是 NoVideosFound 的哨兵错误，可配合 errors.Is 使用。
var ErrNoVideos = errors.New("没有找到可识别的视频文件")

// Result 是一次成功生成（Created）的结果。
type Result struct {
	Path  string   // 播放列表的绝对路径
	Count int      // 写入的条目数
	Names []string // 写入顺序下的条目标题
}

// Build 为 dir 生成 playlist.m3u。
//
// 结果只有四种：
// - 成功：Result（Created）
// - scan_failed：目录无法读取
// - no_videos_found：没有匹配的视频，不写任何文件
// - write_failed：写盘失败（原因挂在 Err 上），旧播放列表保持不变
func Build(dir string) (Result, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Result{}, &domain.Error{Code: domain.ErrCodeScanFailed, Path: dir, Err: err}
	}

	files, err := scan.ListVideos(abs)
	if err != nil {
		return Result{}, &domain.Error{Code: domain.ErrCodeScanFailed, Path: abs, Err: err}
	}

	entries := FromVideos(files)
	if len(entries) == 0 {
		return Result{}, &domain.Error{Code: domain.ErrCodeNoVideosFound, Path: abs, Err: ErrNoVideos}
	}

	return WriteFile(abs, FileName, entries)
}

// FromVideos 把（已排序的）扫描结果转为播放列表条目，保持顺序。
// 文件名含换行的条目无法用一行表示，直接跳过。
func FromVideos(files []domain.VideoFile) []Entry {
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if hasLineBreak(f.Name) {
			continue
		}
		entries = append(entries, Entry{Title: f.Name, Location: f.Name})
	}
	return entries
}

// WriteFile 把 entries 原子写入 dir/name。失败统一归类为 write_failed。
func WriteFile(dir, name string, entries []Entry) (Result, error) {
	path := filepath.Join(dir, name)
	if err := fsx.WriteFileAtomic(dir, name, Marshal(entries)); err != nil {
		return Result{}, &domain.Error{Code: domain.ErrCodeWriteFailed, Path: path, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Title)
	}
	return Result{Path: path, Count: len(entries), Names: names}, nil
}
