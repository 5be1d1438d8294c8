package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
)

// PostgresBroadcastsRepository 广播记录Repository实现
type PostgresBroadcastsRepository struct {
	db *sql.DB
}

func NewPostgresBroadcastsRepository(db *sql.DB) *PostgresBroadcastsRepository {
	return &PostgresBroadcastsRepository{db: db}
}

// 确保实现了接口
var _ BroadcastsRepository = (*PostgresBroadcastsRepository)(nil)

// CreateBroadcast 落库一条广播记录（filter 原样保存）
func (r *PostgresBroadcastsRepository) CreateBroadcast(ctx context.Context, b *domain.Broadcast) error {
	if b.TenantID == "" || b.ID == "" {
		return fmt.Errorf("tenant_id and broadcast id are required")
	}

	query := `
		INSERT INTO broadcasts (id, tenant_id, title, messages, filter, status, sent_count, failed_count, no_uid_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.TenantID, b.Title, []byte(b.Messages), []byte(b.Filter),
		b.Status, b.SentCount, b.FailedCount, b.NoUIDCount, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create broadcast: %w", err)
	}
	return nil
}

// UpdateResult 回写发送结果计数和状态
func (r *PostgresBroadcastsRepository) UpdateResult(ctx context.Context, tenantID, broadcastID, status string, sent, failed, noUID int) error {
	query := `
		UPDATE broadcasts
		SET status = $3, sent_count = $4, failed_count = $5, no_uid_count = $6
		WHERE tenant_id = $1 AND id = $2
	`
	_, err := r.db.ExecContext(ctx, query, tenantID, broadcastID, status, sent, failed, noUID)
	if err != nil {
		return fmt.Errorf("failed to update broadcast result: %w", err)
	}
	return nil
}

// GetBroadcast 查询单条广播记录
func (r *PostgresBroadcastsRepository) GetBroadcast(ctx context.Context, tenantID, broadcastID string) (*domain.Broadcast, error) {
	if tenantID == "" || broadcastID == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT id::text, tenant_id::text, title, messages, filter, status, sent_count, failed_count, no_uid_count, created_at
		FROM broadcasts
		WHERE tenant_id = $1 AND id = $2
	`

	var b domain.Broadcast
	err := r.db.QueryRowContext(ctx, query, tenantID, broadcastID).Scan(
		&b.ID, &b.TenantID, &b.Title, &b.Messages, &b.Filter,
		&b.Status, &b.SentCount, &b.FailedCount, &b.NoUIDCount, &b.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("broadcast not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get broadcast: %w", err)
	}
	return &b, nil
}

// ListBroadcasts 查询广播历史（分页，created_at DESC）
func (r *PostgresBroadcastsRepository) ListBroadcasts(ctx context.Context, tenantID string, page, size int) ([]*domain.Broadcast, int, error) {
	if tenantID == "" {
		return nil, 0, fmt.Errorf("tenant_id is required")
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM broadcasts WHERE tenant_id = $1`, tenantID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count broadcasts: %w", err)
	}

	query := `
		SELECT id::text, tenant_id::text, title, messages, filter, status, sent_count, failed_count, no_uid_count, created_at
		FROM broadcasts
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list broadcasts: %w", err)
	}
	defer rows.Close()

	var broadcasts []*domain.Broadcast
	for rows.Next() {
		var b domain.Broadcast
		if err := rows.Scan(
			&b.ID, &b.TenantID, &b.Title, &b.Messages, &b.Filter,
			&b.Status, &b.SentCount, &b.FailedCount, &b.NoUIDCount, &b.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan broadcast: %w", err)
		}
		broadcasts = append(broadcasts, &b)
	}
	return broadcasts, total, rows.Err()
}

// AddLogs 批量写入单条推送结果
func (r *PostgresBroadcastsRepository) AddLogs(ctx context.Context, logs []*domain.BroadcastLog) error {
	if len(logs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO broadcast_logs (broadcast_id, tenant_id, patient_id, status, detail)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare broadcast log insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range logs {
		if _, err := stmt.ExecContext(ctx, l.BroadcastID, l.TenantID, l.PatientID, l.Status, l.Detail); err != nil {
			return fmt.Errorf("failed to insert broadcast log: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit broadcast logs: %w", err)
	}
	return nil
}
