package domain

import "time"

// Reorder 再处方/再购买记录（对应 reorders 表）
// 只统计次数，不做日期范围过滤
type Reorder struct {
	ID        int64     `db:"id"`
	TenantID  string    `db:"tenant_id"`
	PatientID string    `db:"patient_id"`
	CreatedAt time.Time `db:"created_at"`
}
