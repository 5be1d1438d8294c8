package repository

import (
	"context"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
)

// 行为指标使用的Repository接口
// 时间范围参数为零值时表示不限定（开区间）

// ReservationsRepository 预约/来院记录数据访问
type ReservationsRepository interface {
	// ListVisitedPage 返回 id 批次内 status='visited' 的来院记录（一个窗口）
	ListVisitedPage(ctx context.Context, tenantID string, patientIDs []string, start, end time.Time, offset, limit int) ([]*domain.Reservation, error)

	// ListUpcomingPage 返回 id 批次内 after 之后的已确认预约（一个窗口）
	// 按 reserved_at ASC 排序，供"下次预约"合并使用
	ListUpcomingPage(ctx context.Context, tenantID string, patientIDs []string, after time.Time, offset, limit int) ([]*domain.Reservation, error)
}

// OrdersRepository 订单数据访问
type OrdersRepository interface {
	// ListPaidPage 返回 id 批次内 status='paid' 的订单（一个窗口）
	ListPaidPage(ctx context.Context, tenantID string, patientIDs []string, start, end time.Time, offset, limit int) ([]*domain.Order, error)
}

// ReordersRepository 再处方记录数据访问
type ReordersRepository interface {
	// ListByPatientsPage 返回 id 批次内的再处方记录（一个窗口），不做日期过滤
	ListByPatientsPage(ctx context.Context, tenantID string, patientIDs []string, offset, limit int) ([]*domain.Reorder, error)
}
