package domain

// FieldValue 患者自定义字段值（对应 friend_field_values 表）
// value 为无类型字符串，比较时按数值优先、字符串兜底
type FieldValue struct {
	TenantID  string `db:"tenant_id"`
	PatientID string `db:"patient_id"`
	FieldID   int64  `db:"field_id"`
	Value     string `db:"value"`
}
