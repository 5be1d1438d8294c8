package domain

// TagMember 患者标签关联（对应 patient_tags 表）
// 多对多关系，存在即语义，无顺序
type TagMember struct {
	TenantID  string `db:"tenant_id"`
	PatientID string `db:"patient_id"`
	TagID     int64  `db:"tag_id"`
}
