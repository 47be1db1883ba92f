package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusCreated   = "created"
	StatusNoVideos  = "no_videos"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const (
	LaunchSkipped  = "skipped"
	LaunchDeclined = "declined"
	LaunchStarted  = "started"
	LaunchFailed   = "failed"
)

// Report 是对外稳定输出（stdout JSON）的结构：一次运行只产出一个 Report。
type Report struct {
	Dir      string `json:"dir"`
	Playlist string `json:"playlist"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Count   int      `json:"count"`
	Entries []string `json:"entries"`

	Launch LaunchResult `json:"launch"`
}

// LaunchResult 描述“是否/如何”启动了播放器。启动失败不影响 Report.Status。
type LaunchResult struct {
	Status    string `json:"status"`
	Player    string `json:"player"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Fail 把 err 记录为失败；NoVideosFound 单独归为 no_videos（信息性，不算故障）。
func (r *Report) Fail(err error) {
	r.ErrorCode = Code(err)
	r.ErrorMsg = err.Error()
	if r.ErrorCode == ErrCodeNoVideosFound {
		r.Status = StatusNoVideos
		return
	}
	r.Status = StatusFailed
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) nil 切片归一为空切片（JSON 输出 [] 而不是 null）
// 3) count 由 entries 计算得出；launch.status 缺省为 skipped
func (r *Report) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Entries == nil {
		r.Entries = []string{}
	}
	r.Count = len(r.Entries)
	if r.Launch.Status == "" {
		r.Launch.Status = LaunchSkipped
	}
}

// OK 表示这次运行是否应以 0 退出：生成成功或用户主动取消。
func (r Report) OK() bool {
	return r.Status == StatusCreated || r.Status == StatusCancelled
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r Report) MarshalJSON() ([]byte, error) {
	type Alias Report
	return json.Marshal(Alias(r))
}
