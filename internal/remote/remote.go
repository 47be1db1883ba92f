// Package remote 从 HTTP 目录索引页（autoindex 一类）生成播放列表。
//
// 只读取一页，不递归子目录；条目的 location 是解析后的绝对 URL。
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/playm3u/internal/domain"
	"github.com/John-Robertt/playm3u/internal/natsort"
	"github.com/John-Robertt/playm3u/internal/playlist"
)

// MaxPageBytes 是索引页的读取上限；超出即视为 fetch_failed，不按截断内容生成列表。
const MaxPageBytes = 8 << 20

// ErrPageTooLarge 表示索引页超过读取上限。
var ErrPageTooLarge = errors.New("索引页超过读取上限")

// 测试可调小上限，避免构造 8 MiB 的页面。
var pageLimit int64 = MaxPageBytes

// HTTPStatusError 表示服务器返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// Fetch 读取 pageURL 的 body。任何失败都归类为 fetch_failed。
func Fetch(ctx context.Context, c *http.Client, pageURL string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &domain.Error{Code: domain.ErrCodeFetchFailed, Path: pageURL, Err: err}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.Do(req)
	if err != nil {
		return nil, &domain.Error{Code: domain.ErrCodeFetchFailed, Path: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &domain.Error{Code: domain.ErrCodeFetchFailed, Path: pageURL, Err: &HTTPStatusError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Location:   resp.Header.Get("Location"),
		}}
	}

	// 多读 1 字节用于判断是否超限。
	b, err := io.ReadAll(io.LimitReader(resp.Body, pageLimit+1))
	if err != nil {
		return nil, &domain.Error{Code: domain.ErrCodeFetchFailed, Path: pageURL, Err: err}
	}
	if int64(len(b)) > pageLimit {
		return nil, &domain.Error{Code: domain.ErrCodeFetchFailed, Path: pageURL, Err: fmt.Errorf("%w（%d 字节）", ErrPageTooLarge, pageLimit)}
	}
	if len(b) == 0 {
		return nil, &domain.Error{Code: domain.ErrCodeFetchFailed, Path: pageURL, Err: errors.New("empty response body")}
	}
	return b, nil
}

// ParseIndex 从索引页 HTML 中提取指向视频文件的链接。
//
// 规则：
// - 相对链接按 pageURL 解析为绝对 URL；按绝对 URL 去重
// - 跳过父目录/自身/纯查询链接，以及目录链接（以 "/" 结尾）
// - 扩展名按解码后的文件名判断（大小写不敏感）
// - 标题是解码后的文件名，按自然顺序排序
//
// 没有任何匹配时返回 no_videos_found。
func ParseIndex(html []byte, pageURL string) ([]playlist.Entry, error) {
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		if err == nil {
			err = errors.New("需要包含 scheme 与 host 的绝对 URL")
		}
		return nil, &domain.Error{Code: domain.ErrCodeParseFailed, Path: pageURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &domain.Error{Code: domain.ErrCodeParseFailed, Path: pageURL, Err: err}
	}

	seen := make(map[string]struct{})
	entries := make([]playlist.Entry, 0, 32)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		e, ok := entryFor(base, href)
		if !ok {
			return
		}
		if _, dup := seen[e.Location]; dup {
			return
		}
		seen[e.Location] = struct{}{}
		entries = append(entries, e)
	})

	if len(entries) == 0 {
		return nil, &domain.Error{Code: domain.ErrCodeNoVideosFound, Path: pageURL, Err: playlist.ErrNoVideos}
	}
	natsort.SortFunc(entries, func(e playlist.Entry) string { return e.Title })
	return entries, nil
}

func entryFor(base *url.URL, href string) (playlist.Entry, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "?") {
		return playlist.Entry{}, false
	}
	switch href {
	case ".", "./", "..", "../":
		return playlist.Entry{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return playlist.Entry{}, false
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return playlist.Entry{}, false
	}
	u.Fragment = ""
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return playlist.Entry{}, false
	}

	title := path.Base(u.Path)
	if _, ok := domain.VideoExt(title); !ok {
		return playlist.Entry{}, false
	}
	if strings.ContainsAny(title, "\r\n") {
		return playlist.Entry{}, false
	}
	return playlist.Entry{Title: title, Location: u.String()}, true
}

// Build 抓取 pageURL 并把结果写到 outPath（原子覆盖）。
func Build(ctx context.Context, c *http.Client, pageURL, outPath string) (playlist.Result, error) {
	html, err := Fetch(ctx, c, pageURL)
	if err != nil {
		return playlist.Result{}, err
	}
	entries, err := ParseIndex(html, pageURL)
	if err != nil {
		return playlist.Result{}, err
	}

	abs, err := filepath.Abs(outPath)
	if err != nil {
		return playlist.Result{}, &domain.Error{Code: domain.ErrCodeWriteFailed, Path: outPath, Err: err}
	}
	return playlist.WriteFile(filepath.Dir(abs), filepath.Base(abs), entries)
}
