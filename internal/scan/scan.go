package scan

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/John-Robertt/playm3u/internal/domain"
	"github.com/John-Robertt/playm3u/internal/natsort"
)

// 通过可替换的函数指针，让测试能稳定模拟目录读取失败。
var readDirFunc = os.ReadDir

// ListVideos 列出 dir 下（不递归）的视频文件，按文件名自然排序。
//
// 规则（硬约束）：
// - 只看直接子项；子目录一律忽略，哪怕名字像 "x.mkv"
// - 扩展名大小写不敏感，集合见 domain.VideoExtensions；".mkv" 这类只有扩展名的名字不算
// - 符号链接按目标判断（与“是否为普通文件”的直觉一致）；悬空链接忽略
//
// 注意：扫描阶段只做 stat，不读文件内容。
func ListVideos(dir string) ([]domain.VideoFile, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	entries, err := readDirFunc(abs)
	if err != nil {
		return nil, err
	}

	files := make([]domain.VideoFile, 0, len(entries))
	for _, d := range entries {
		name := d.Name()
		ext, ok := domain.VideoExt(name)
		if !ok {
			continue
		}

		path := filepath.Join(abs, name)
		info, ok := regularInfo(path, d)
		if !ok {
			continue
		}

		files = append(files, domain.VideoFile{
			AbsPath: path,
			Name:    name,
			Ext:     ext,
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
	}

	natsort.SortFunc(files, func(f domain.VideoFile) string { return f.Name })
	return files, nil
}

// regularInfo 返回 path 的 FileInfo，仅当它（跟随符号链接后）是普通文件时 ok=true。
// 单个条目 stat 失败（例如扫描期间被删除）只跳过该条目，不让整次扫描失败。
func regularInfo(path string, d fs.DirEntry) (fs.FileInfo, bool) {
	if d.Type()&fs.ModeSymlink != 0 {
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			return nil, false
		}
		return fi, true
	}
	if !d.Type().IsRegular() {
		return nil, false
	}
	fi, err := d.Info()
	if err != nil {
		return nil, false
	}
	return fi, true
}
