package httpx

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewClient(Options{ProxyURL: "http://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.Base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !tr.Base.DisableKeepAlives || !tr.DisableKeepAlives {
		t.Fatalf("代理模式应禁用 keep-alive")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := c.Transport.(*Transport)
	if tr.Base.Proxy != nil {
		t.Fatalf("不期望启用代理，但 Proxy!=nil")
	}
	if tr.Base.DisableKeepAlives {
		t.Fatalf("不期望禁用 keep-alive")
	}
	if c.Timeout != DefaultTimeout || tr.RetryMax != DefaultRetryMax {
		t.Fatalf("默认值不符：timeout=%v retry=%d", c.Timeout, tr.RetryMax)
	}
}

func TestNewClient_InvalidProxyURL(t *testing.T) {
	for _, p := range []string{"http://[::1", "127.0.0.1:7890"} {
		if _, err := NewClient(Options{ProxyURL: p}); err == nil {
			t.Fatalf("%q：期望错误，但得到 nil", p)
		}
	}
}

func TestTransport_SetsUserAgent(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	resp.Body.Close()
	if got.Load() != DefaultUserAgent {
		t.Fatalf("期望 UA=%q，实际=%v", DefaultUserAgent, got.Load())
	}
}

func TestTransport_RetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &http.Client{Transport: &Transport{
		Base:     &http.Transport{},
		RetryMax: 2,
		Backoff:  func(int) time.Duration { return 0 },
	}}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望最终 200，实际=%d", resp.StatusCode)
	}
	if hits.Load() != 3 {
		t.Fatalf("期望 3 次尝试，实际=%d", hits.Load())
	}
}

func TestTransport_ReturnsLastTransientResponse(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &http.Client{Transport: &Transport{Base: &http.Transport{}, RetryMax: 1}}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("重试耗尽时应返回最后一次响应，实际 err=%v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway || hits.Load() != 2 {
		t.Fatalf("status=%d hits=%d", resp.StatusCode, hits.Load())
	}
}

func TestTransport_NoRetryOnNotFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := &http.Client{Transport: &Transport{Base: &http.Transport{}, RetryMax: 2}}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	resp.Body.Close()
	if hits.Load() != 1 {
		t.Fatalf("404 不应重试，实际尝试=%d", hits.Load())
	}
}
