package httpx

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultRetryMax = 2

	// DefaultUserAgent 标识本工具；目录索引页一般不做 UA 过滤。
	DefaultUserAgent = "playm3u/1 (+https://github.com/John-Robertt/playm3u)"
)

// Options 控制 NewClient 构造的客户端。零值即默认策略。
type Options struct {
	// ProxyURL 非空时所有请求走该代理，且每请求新连接。
	ProxyURL string
	// Timeout 是单次 Do 的总超时（包含重试）；<=0 使用 DefaultTimeout。
	Timeout time.Duration
	// RetryMax 是最大重试次数（不含首次尝试）；<0 表示不重试。
	RetryMax int
	// UserAgent 为空时使用 DefaultUserAgent。
	UserAgent string
}

// Transport 在 Base 之上统一 UA、keep-alive 与有界重试策略。
type Transport struct {
	Base *http.Transport

	UserAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int

	// Backoff 是第 n 次重试前的等待时长；nil 表示不等待。
	Backoff func(attempt int) time.Duration

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 && !t.wait(req, attempt) {
			break
		}

		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			ua := t.UserAgent
			if ua == "" {
				ua = DefaultUserAgent
			}
			r.Header.Set("User-Agent", ua)
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, lastErr = t.Base.RoundTrip(r)
		if lastErr == nil {
			if !transientStatus(resp.StatusCode) || attempt == max {
				return resp, nil
			}
			// 可重试的 5xx：丢弃 body 以便连接复用，然后重试。
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			_ = resp.Body.Close()
			resp = nil
			continue
		}
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = req.Context().Err()
	}
	return nil, lastErr
}

// wait 在重试前等待 Backoff；ctx 取消时返回 false。
func (t *Transport) wait(req *http.Request, attempt int) bool {
	if req.Context().Err() != nil {
		return false
	}
	if t.Backoff == nil {
		return true
	}
	d := t.Backoff(attempt)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return false
	case <-timer.C:
		return true
	}
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func linearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 300 * time.Millisecond
}

// NewClient 构造抓取远程目录页的 HTTP client。
//
// 规则：
// - ProxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - GET/HEAD 的网络错误与 502/503/504 做有界重试
// - 总超时覆盖全部尝试
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   2,
	}

	disableKeepAlives := false
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 必须包含 scheme 与 host")
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retry := opts.RetryMax
	if retry == 0 {
		retry = DefaultRetryMax
	}

	tr := &Transport{
		Base:              base,
		UserAgent:         strings.TrimSpace(opts.UserAgent),
		RetryMax:          retry,
		Backoff:           linearBackoff,
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
