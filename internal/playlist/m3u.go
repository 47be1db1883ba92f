package playlist

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

const (
	// Header 是扩展 M3U 的首行标记，必须逐字节一致。
	Header = "#EXTM3U"
	// unknownDuration 是 #EXTINF 的时长占位：不做媒体探测。
	unknownDuration = "-1"
)

// Entry 是播放列表中的一项。
//
// 本地目录：Title 与 Location 都是裸文件名（相对播放列表所在目录）。
// 远程索引：Location 是绝对 URL，Title 是解码后的文件名。
type Entry struct {
	Title    string
	Location string
}

// Encode 把 entries 按扩展 M3U 格式写入 w（UTF-8，'\n' 换行）：
//
//	#EXTM3U
//	#EXTINF:-1, <title>
//	<location>
func Encode(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(Header)
	bw.WriteByte('\n')
	for _, e := range entries {
		bw.WriteString("#EXTINF:")
		bw.WriteString(unknownDuration)
		bw.WriteString(", ")
		bw.WriteString(oneLine(e.Title))
		bw.WriteByte('\n')
		bw.WriteString(e.Location)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Marshal 返回 Encode 的字节结果。
func Marshal(entries []Entry) []byte {
	var buf bytes.Buffer
	_ = Encode(&buf, entries) // bytes.Buffer 不会返回写错误
	return buf.Bytes()
}

// hasLineBreak 报告 s 是否含换行：这样的 Location 无法写成单独一行。
func hasLineBreak(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

// oneLine 把标题压成一行；标题只用于显示，替换不影响定位。
func oneLine(s string) string {
	if !hasLineBreak(s) {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(s)
}
