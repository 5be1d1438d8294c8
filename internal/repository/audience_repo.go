package repository

import (
	"context"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
)

// 受众解析使用的Repository接口
// 使用强类型领域模型，不使用map[string]any
// 设计原则：所有列表方法都是窗口查询（offset/limit），
// 上层通过 FetchAll 组合取回完整结果集

// IntakeRepository 问诊记录数据访问
type IntakeRepository interface {
	// ListIntakePage 按 created_at DESC 返回一个窗口的问诊记录
	// 排序即去重的 tie-break：解析器保留每个 patient_id 首次出现的行
	ListIntakePage(ctx context.Context, tenantID string, offset, limit int) ([]*domain.IntakeRecord, error)
}

// PatientsRepository 患者数据访问
type PatientsRepository interface {
	// ListByIDsPage 按 patient_id 批量查询患者（一个窗口）
	ListByIDsPage(ctx context.Context, tenantID string, patientIDs []string, offset, limit int) ([]*domain.Patient, error)
}

// TagMembersRepository 患者标签关联数据访问
type TagMembersRepository interface {
	// ListByTagPage 返回拥有指定 tag 的患者关联（一个窗口）
	ListByTagPage(ctx context.Context, tenantID string, tagID int64, offset, limit int) ([]*domain.TagMember, error)
}

// MarksRepository 患者运营标记数据访问
type MarksRepository interface {
	// ListByValuesPage 返回 mark_value 命中任一给定值的关联（一个窗口）
	ListByValuesPage(ctx context.Context, tenantID string, values []string, offset, limit int) ([]*domain.MarkMember, error)
}

// FieldValuesRepository 自定义字段值数据访问
type FieldValuesRepository interface {
	// ListByFieldPage 返回指定字段的所有取值（一个窗口）
	ListByFieldPage(ctx context.Context, tenantID string, fieldID int64, offset, limit int) ([]*domain.FieldValue, error)
}
