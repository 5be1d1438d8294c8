package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"

	"github.com/lib/pq"
)

// PostgresReservationsRepository 预约记录Repository实现
type PostgresReservationsRepository struct {
	db *sql.DB
}

func NewPostgresReservationsRepository(db *sql.DB) *PostgresReservationsRepository {
	return &PostgresReservationsRepository{db: db}
}

// 确保实现了接口
var _ ReservationsRepository = (*PostgresReservationsRepository)(nil)

// ListVisitedPage 返回 id 批次内 status='visited' 的来院记录（一个窗口）
func (r *PostgresReservationsRepository) ListVisitedPage(ctx context.Context, tenantID string, patientIDs []string, start, end time.Time, offset, limit int) ([]*domain.Reservation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if len(patientIDs) == 0 {
		return nil, nil
	}

	// 时间范围为零值时不加入条件
	where := []string{"tenant_id = $1", "patient_id = ANY($2)", "status = $3"}
	args := []any{tenantID, pq.Array(patientIDs), domain.ReservationStatusVisited}
	argIdx := 4

	if !start.IsZero() {
		where = append(where, fmt.Sprintf("reserved_at >= $%d", argIdx))
		args = append(args, start)
		argIdx++
	}
	if !end.IsZero() {
		where = append(where, fmt.Sprintf("reserved_at < $%d", argIdx))
		args = append(args, end)
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id::text, patient_id, reserved_at, status
		FROM reservations
		WHERE %s
		ORDER BY id
		LIMIT $%d OFFSET $%d
	`, strings.Join(where, " AND "), argIdx, argIdx+1)
	args = append(args, limit, offset)

	return r.queryReservations(ctx, query, args)
}

// ListUpcomingPage 返回 id 批次内 after 之后的已确认预约（一个窗口）
func (r *PostgresReservationsRepository) ListUpcomingPage(ctx context.Context, tenantID string, patientIDs []string, after time.Time, offset, limit int) ([]*domain.Reservation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if len(patientIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, tenant_id::text, patient_id, reserved_at, status
		FROM reservations
		WHERE tenant_id = $1 AND patient_id = ANY($2)
		  AND status = $3 AND reserved_at >= $4
		ORDER BY reserved_at ASC, id ASC
		LIMIT $5 OFFSET $6
	`
	args := []any{tenantID, pq.Array(patientIDs), domain.ReservationStatusConfirmed, after, limit, offset}

	return r.queryReservations(ctx, query, args)
}

func (r *PostgresReservationsRepository) queryReservations(ctx context.Context, query string, args []any) ([]*domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*domain.Reservation
	for rows.Next() {
		var rv domain.Reservation
		if err := rows.Scan(&rv.ID, &rv.TenantID, &rv.PatientID, &rv.ReservedAt, &rv.Status); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, &rv)
	}
	return reservations, rows.Err()
}

// PostgresOrdersRepository 订单Repository实现
type PostgresOrdersRepository struct {
	db *sql.DB
}

func NewPostgresOrdersRepository(db *sql.DB) *PostgresOrdersRepository {
	return &PostgresOrdersRepository{db: db}
}

var _ OrdersRepository = (*PostgresOrdersRepository)(nil)

// ListPaidPage 返回 id 批次内 status='paid' 的订单（一个窗口）
// 日期范围按 paid_at 过滤
func (r *PostgresOrdersRepository) ListPaidPage(ctx context.Context, tenantID string, patientIDs []string, start, end time.Time, offset, limit int) ([]*domain.Order, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if len(patientIDs) == 0 {
		return nil, nil
	}

	where := []string{"tenant_id = $1", "patient_id = ANY($2)", "status = $3"}
	args := []any{tenantID, pq.Array(patientIDs), domain.OrderStatusPaid}
	argIdx := 4

	if !start.IsZero() {
		where = append(where, fmt.Sprintf("paid_at >= $%d", argIdx))
		args = append(args, start)
		argIdx++
	}
	if !end.IsZero() {
		where = append(where, fmt.Sprintf("paid_at < $%d", argIdx))
		args = append(args, end)
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id::text, patient_id, amount, status, paid_at
		FROM orders
		WHERE %s
		ORDER BY id
		LIMIT $%d OFFSET $%d
	`, strings.Join(where, " AND "), argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.TenantID, &o.PatientID, &o.Amount, &o.Status, &o.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

// PostgresReordersRepository 再处方记录Repository实现
type PostgresReordersRepository struct {
	db *sql.DB
}

func NewPostgresReordersRepository(db *sql.DB) *PostgresReordersRepository {
	return &PostgresReordersRepository{db: db}
}

var _ ReordersRepository = (*PostgresReordersRepository)(nil)

// ListByPatientsPage 返回 id 批次内的再处方记录（一个窗口）
func (r *PostgresReordersRepository) ListByPatientsPage(ctx context.Context, tenantID string, patientIDs []string, offset, limit int) ([]*domain.Reorder, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if len(patientIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, tenant_id::text, patient_id, created_at
		FROM reorders
		WHERE tenant_id = $1 AND patient_id = ANY($2)
		ORDER BY id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(patientIDs), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reorders: %w", err)
	}
	defer rows.Close()

	var reorders []*domain.Reorder
	for rows.Next() {
		var ro domain.Reorder
		if err := rows.Scan(&ro.ID, &ro.TenantID, &ro.PatientID, &ro.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reorder: %w", err)
		}
		reorders = append(reorders, &ro)
	}
	return reorders, rows.Err()
}
