package domain

import "time"

// IntakeRecord 问诊记录（对应 intake_records 表）
// 受众全集以问诊记录为准：同一患者多次问诊只取最近一条
type IntakeRecord struct {
	ID        int64     `db:"id"`
	TenantID  string    `db:"tenant_id"`
	PatientID string    `db:"patient_id"`
	CreatedAt time.Time `db:"created_at"`
}
