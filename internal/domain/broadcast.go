package domain

import (
	"encoding/json"
	"time"
)

// Broadcast 广播发送记录（对应 broadcasts 表）
// Filter 原样保存请求时的筛选规则（审计用）；
// 解析出的目标列表不落库，只保留 sent/failed/no_uid 计数
type Broadcast struct {
	ID          string          `db:"id"`
	TenantID    string          `db:"tenant_id"`
	Title       string          `db:"title"`
	Messages    json.RawMessage `db:"messages"`
	Filter      json.RawMessage `db:"filter"`
	Status      string          `db:"status"`
	SentCount   int             `db:"sent_count"`
	FailedCount int             `db:"failed_count"`
	NoUIDCount  int             `db:"no_uid_count"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Broadcast status 常量
const (
	BroadcastStatusSending = "sending"
	BroadcastStatusDone    = "done"
)

// BroadcastTarget 受众解析结果中的一个目标
// LineUserID 为 nil 表示未绑定 LINE，发送时计入 no_uid
type BroadcastTarget struct {
	PatientID   string  `json:"patient_id"`
	PatientName string  `json:"patient_name"`
	LineUserID  *string `json:"line_id"`
}

// HasLineUID 是否可推送
func (t BroadcastTarget) HasLineUID() bool {
	return t.LineUserID != nil && *t.LineUserID != ""
}

// BroadcastLog 单条推送结果（对应 broadcast_logs 表）
type BroadcastLog struct {
	BroadcastID string `db:"broadcast_id"`
	TenantID    string `db:"tenant_id"`
	PatientID   string `db:"patient_id"`
	Status      string `db:"status"`
	Detail      string `db:"detail"`
}

// BroadcastLog status 常量
const (
	BroadcastLogSent   = "sent"
	BroadcastLogFailed = "failed"
	BroadcastLogNoUID  = "no_uid"
)
