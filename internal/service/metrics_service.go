package service

import (
	"context"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/repository"

	"go.uber.org/zap"
)

// BehaviorMetricsService 行为指标服务
// 给定患者 id 批次，按需计算来院次数/购买金额/最近来院/再处方次数
// 所有方法都是批量查询（一轮窗口取回），不做逐患者查询
type BehaviorMetricsService struct {
	reservations repository.ReservationsRepository
	orders       repository.OrdersRepository
	reorders     repository.ReordersRepository
	logger       *zap.Logger

	// 测试覆盖当前时间用
	now func() time.Time
}

// NewBehaviorMetricsService 创建行为指标服务
func NewBehaviorMetricsService(
	reservations repository.ReservationsRepository,
	orders repository.OrdersRepository,
	reorders repository.ReordersRepository,
	logger *zap.Logger,
) *BehaviorMetricsService {
	return &BehaviorMetricsService{
		reservations: reservations,
		orders:       orders,
		reorders:     reorders,
		logger:       logger,
		now:          time.Now,
	}
}

// resolveRange 解释 date_range token；未知 token 视为不限定
func (s *BehaviorMetricsService) resolveRange(dateRange string) (time.Time, time.Time) {
	if dateRange == "" {
		return time.Time{}, time.Time{}
	}
	start, end, ok := parseDateRange(dateRange, s.now())
	if !ok {
		s.logger.Debug("Unknown date_range token, treating as unbounded", zap.String("date_range", dateRange))
	}
	return start, end
}

// VisitCounts 统计日期范围内每个患者的来院次数
// 返回的 map 里没有的患者视为 0 次
func (s *BehaviorMetricsService) VisitCounts(ctx context.Context, tenantID string, patientIDs []string, dateRange string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(patientIDs) == 0 {
		return counts, nil
	}

	start, end := s.resolveRange(dateRange)
	visits, err := repository.FetchAll(func(offset, limit int) ([]*domain.Reservation, error) {
		return s.reservations.ListVisitedPage(ctx, tenantID, patientIDs, start, end, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	for _, v := range visits {
		counts[v.PatientID]++
	}
	return counts, nil
}

// PurchaseAmounts 统计日期范围内每个患者的已支付订单金额合计
func (s *BehaviorMetricsService) PurchaseAmounts(ctx context.Context, tenantID string, patientIDs []string, dateRange string) (map[string]int64, error) {
	amounts := make(map[string]int64)
	if len(patientIDs) == 0 {
		return amounts, nil
	}

	start, end := s.resolveRange(dateRange)
	orders, err := repository.FetchAll(func(offset, limit int) ([]*domain.Order, error) {
		return s.orders.ListPaidPage(ctx, tenantID, patientIDs, start, end, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	for _, o := range orders {
		amounts[o.PatientID] += o.Amount
	}
	return amounts, nil
}

// LastVisitDates 每个患者的最近来院日期（从未来院的患者不在 map 里）
func (s *BehaviorMetricsService) LastVisitDates(ctx context.Context, tenantID string, patientIDs []string) (map[string]time.Time, error) {
	last := make(map[string]time.Time)
	if len(patientIDs) == 0 {
		return last, nil
	}

	visits, err := repository.FetchAll(func(offset, limit int) ([]*domain.Reservation, error) {
		return s.reservations.ListVisitedPage(ctx, tenantID, patientIDs, time.Time{}, time.Time{}, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	for _, v := range visits {
		if cur, ok := last[v.PatientID]; !ok || v.ReservedAt.After(cur) {
			last[v.PatientID] = v.ReservedAt
		}
	}
	return last, nil
}

// ReorderCounts 每个患者的再处方次数（不做日期过滤）
func (s *BehaviorMetricsService) ReorderCounts(ctx context.Context, tenantID string, patientIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(patientIDs) == 0 {
		return counts, nil
	}

	reorders, err := repository.FetchAll(func(offset, limit int) ([]*domain.Reorder, error) {
		return s.reorders.ListByPatientsPage(ctx, tenantID, patientIDs, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	for _, ro := range reorders {
		counts[ro.PatientID]++
	}
	return counts, nil
}

// NextReservations 每个患者最近的一条未来已确认预约
// 发送时做 {next_reservation} 模板替换用
func (s *BehaviorMetricsService) NextReservations(ctx context.Context, tenantID string, patientIDs []string) (map[string]time.Time, error) {
	next := make(map[string]time.Time)
	if len(patientIDs) == 0 {
		return next, nil
	}

	upcoming, err := repository.FetchAll(func(offset, limit int) ([]*domain.Reservation, error) {
		return s.reservations.ListUpcomingPage(ctx, tenantID, patientIDs, s.now(), offset, limit)
	})
	if err != nil {
		return nil, err
	}

	// 查询按 reserved_at ASC 排序，保留首次出现的即为最近一条
	for _, rv := range upcoming {
		if _, ok := next[rv.PatientID]; !ok {
			next[rv.PatientID] = rv.ReservedAt
		}
	}
	return next, nil
}
