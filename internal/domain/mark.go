package domain

// MarkMember 患者对应マーク（运营状态标记，对应 patient_marks 表）
// mark_value 取值于固定的运营状态集合
type MarkMember struct {
	TenantID  string `db:"tenant_id"`
	PatientID string `db:"patient_id"`
	MarkValue string `db:"mark_value"`
}

// MarkValue 运营状态标记常量
type MarkValue string

const (
	MarkUrgent    MarkValue = "urgent"     // 需要优先跟进
	MarkFollowUp  MarkValue = "follow_up"  // 跟进中
	MarkDormant   MarkValue = "dormant"    // 休眠客户
	MarkVIP       MarkValue = "vip"        // 高价值客户
	MarkCaution   MarkValue = "caution"    // 注意对应
	MarkCompleted MarkValue = "completed"  // 疗程结束
)
