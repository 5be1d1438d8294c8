package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"

	"github.com/lib/pq"
)

// PostgresIntakeRepository 问诊记录Repository实现
type PostgresIntakeRepository struct {
	db *sql.DB
}

func NewPostgresIntakeRepository(db *sql.DB) *PostgresIntakeRepository {
	return &PostgresIntakeRepository{db: db}
}

// 确保实现了接口
var _ IntakeRepository = (*PostgresIntakeRepository)(nil)

// ListIntakePage 按 created_at DESC 返回一个窗口的问诊记录
// id DESC 作为次级排序，保证分页窗口之间顺序稳定
func (r *PostgresIntakeRepository) ListIntakePage(ctx context.Context, tenantID string, offset, limit int) ([]*domain.IntakeRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT id, tenant_id::text, patient_id, created_at
		FROM intake_records
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list intake records: %w", err)
	}
	defer rows.Close()

	var records []*domain.IntakeRecord
	for rows.Next() {
		var rec domain.IntakeRecord
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.PatientID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan intake record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// PostgresPatientsRepository 患者Repository实现
type PostgresPatientsRepository struct {
	db *sql.DB
}

func NewPostgresPatientsRepository(db *sql.DB) *PostgresPatientsRepository {
	return &PostgresPatientsRepository{db: db}
}

var _ PatientsRepository = (*PostgresPatientsRepository)(nil)

// ListByIDsPage 按 patient_id 批量查询患者（一个窗口）
func (r *PostgresPatientsRepository) ListByIDsPage(ctx context.Context, tenantID string, patientIDs []string, offset, limit int) ([]*domain.Patient, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if len(patientIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT patient_id, tenant_id::text, patient_name, line_user_id, created_at
		FROM patients
		WHERE tenant_id = $1 AND patient_id = ANY($2)
		ORDER BY patient_id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(patientIDs), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var patients []*domain.Patient
	for rows.Next() {
		var p domain.Patient
		if err := rows.Scan(&p.PatientID, &p.TenantID, &p.PatientName, &p.LineUserID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, &p)
	}
	return patients, rows.Err()
}

// PostgresTagMembersRepository 患者标签关联Repository实现
type PostgresTagMembersRepository struct {
	db *sql.DB
}

func NewPostgresTagMembersRepository(db *sql.DB) *PostgresTagMembersRepository {
	return &PostgresTagMembersRepository{db: db}
}

var _ TagMembersRepository = (*PostgresTagMembersRepository)(nil)

// ListByTagPage 返回拥有指定 tag 的患者关联（一个窗口）
func (r *PostgresTagMembersRepository) ListByTagPage(ctx context.Context, tenantID string, tagID int64, offset, limit int) ([]*domain.TagMember, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT tenant_id::text, patient_id, tag_id
		FROM patient_tags
		WHERE tenant_id = $1 AND tag_id = $2
		ORDER BY patient_id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, tagID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tag members: %w", err)
	}
	defer rows.Close()

	var members []*domain.TagMember
	for rows.Next() {
		var m domain.TagMember
		if err := rows.Scan(&m.TenantID, &m.PatientID, &m.TagID); err != nil {
			return nil, fmt.Errorf("failed to scan tag member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// PostgresMarksRepository 患者运营标记Repository实现
type PostgresMarksRepository struct {
	db *sql.DB
}

func NewPostgresMarksRepository(db *sql.DB) *PostgresMarksRepository {
	return &PostgresMarksRepository{db: db}
}

var _ MarksRepository = (*PostgresMarksRepository)(nil)

// ListByValuesPage 返回 mark_value 命中任一给定值的关联（一个窗口）
func (r *PostgresMarksRepository) ListByValuesPage(ctx context.Context, tenantID string, values []string, offset, limit int) ([]*domain.MarkMember, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if len(values) == 0 {
		return nil, nil
	}

	query := `
		SELECT tenant_id::text, patient_id, mark_value
		FROM patient_marks
		WHERE tenant_id = $1 AND mark_value = ANY($2)
		ORDER BY patient_id, mark_value
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(values), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list mark members: %w", err)
	}
	defer rows.Close()

	var members []*domain.MarkMember
	for rows.Next() {
		var m domain.MarkMember
		if err := rows.Scan(&m.TenantID, &m.PatientID, &m.MarkValue); err != nil {
			return nil, fmt.Errorf("failed to scan mark member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// PostgresFieldValuesRepository 自定义字段值Repository实现
type PostgresFieldValuesRepository struct {
	db *sql.DB
}

func NewPostgresFieldValuesRepository(db *sql.DB) *PostgresFieldValuesRepository {
	return &PostgresFieldValuesRepository{db: db}
}

var _ FieldValuesRepository = (*PostgresFieldValuesRepository)(nil)

// ListByFieldPage 返回指定字段的所有取值（一个窗口）
func (r *PostgresFieldValuesRepository) ListByFieldPage(ctx context.Context, tenantID string, fieldID int64, offset, limit int) ([]*domain.FieldValue, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT tenant_id::text, patient_id, field_id, value
		FROM friend_field_values
		WHERE tenant_id = $1 AND field_id = $2
		ORDER BY patient_id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, fieldID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list field values: %w", err)
	}
	defer rows.Close()

	var values []*domain.FieldValue
	for rows.Next() {
		var v domain.FieldValue
		if err := rows.Scan(&v.TenantID, &v.PatientID, &v.FieldID, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan field value: %w", err)
		}
		values = append(values, &v)
	}
	return values, rows.Err()
}
