package domain

import "time"

// Patient 患者主档（对应 patients 表）
// line_user_id 为空表示未绑定 LINE，不可触达
type Patient struct {
	TenantID    string    `db:"tenant_id"`
	PatientID   string    `db:"patient_id"`
	PatientName string    `db:"patient_name"`
	LineUserID  *string   `db:"line_user_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// HasLineUID 是否绑定了 LINE
func (p *Patient) HasLineUID() bool {
	return p.LineUserID != nil && *p.LineUserID != ""
}
