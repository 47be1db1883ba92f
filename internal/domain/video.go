package domain

import (
	"path"
	"slices"
	"strings"
)

// VideoFile 描述一次扫描得到的视频文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - Name 是目录内的文件名（不含目录），播放列表只写它（相对播放列表所在目录）
type VideoFile struct {
	AbsPath string
	Name    string
	Ext     string // 小写，例如 ".mkv"
	Size    int64
	ModUnix int64
}

// VideoExtensions 是可识别的视频扩展名集合（小写，带 '.'）。
var VideoExtensions = []string{".mkv", ".mp4", ".avi", ".webm", ".mov", ".flv", ".wmv"}

// IsVideoExt 判断 ext（需已小写）是否属于可识别集合。
func IsVideoExt(ext string) bool {
	return slices.Contains(VideoExtensions, ext)
}

// VideoExt 返回 name 的小写扩展名，以及它是否是可识别的视频文件名。
// 只有扩展名、没有主干的名字（例如 ".mkv"）不算视频。
func VideoExt(name string) (string, bool) {
	ext := strings.ToLower(path.Ext(name))
	if len(name) <= len(ext) || !IsVideoExt(ext) {
		return ext, false
	}
	return ext, true
}
