package service

import (
	"context"
	"testing"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTenantID = "00000000-0000-0000-0000-000000000901"

// testNow 固定"当前时间"，所有涉及日期窗口的测试用它
var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestMetricsService(repo *repository.MemoryClinicRepo) *BehaviorMetricsService {
	s := NewBehaviorMetricsService(repo, repo, repo, zap.NewNop())
	s.now = func() time.Time { return testNow }
	return s
}

func addVisit(repo *repository.MemoryClinicRepo, patientID string, at time.Time) {
	repo.AddReservation(&domain.Reservation{
		TenantID:   testTenantID,
		PatientID:  patientID,
		ReservedAt: at,
		Status:     domain.ReservationStatusVisited,
	})
}

func TestVisitCounts_CountsPerPatient(t *testing.T) {
	repo := repository.NewMemoryClinicRepo()
	addVisit(repo, "P1", testNow.AddDate(0, 0, -1))
	addVisit(repo, "P1", testNow.AddDate(0, 0, -2))
	addVisit(repo, "P2", testNow.AddDate(0, 0, -3))
	// 取消的预约不算来院
	repo.AddReservation(&domain.Reservation{
		TenantID:   testTenantID,
		PatientID:  "P2",
		ReservedAt: testNow.AddDate(0, 0, -4),
		Status:     domain.ReservationStatusCanceled,
	})

	svc := newTestMetricsService(repo)
	counts, err := svc.VisitCounts(context.Background(), testTenantID, []string{"P1", "P2", "P3"}, "")
	require.NoError(t, err)
	require.Equal(t, 2, counts["P1"])
	require.Equal(t, 1, counts["P2"])
	// 从未来院的患者不在 map 里（隐式 0）
	_, ok := counts["P3"]
	require.False(t, ok)
}

func TestVisitCounts_DateRangeFilter(t *testing.T) {
	repo := repository.NewMemoryClinicRepo()
	addVisit(repo, "P1", testNow.AddDate(0, 0, -10)) // 30 天内
	addVisit(repo, "P1", testNow.AddDate(0, 0, -60)) // 30 天外

	svc := newTestMetricsService(repo)
	counts, err := svc.VisitCounts(context.Background(), testTenantID, []string{"P1"}, DateRangeLast30Days)
	require.NoError(t, err)
	require.Equal(t, 1, counts["P1"])
}

func TestVisitCounts_EmptyIDList(t *testing.T) {
	svc := newTestMetricsService(repository.NewMemoryClinicRepo())
	counts, err := svc.VisitCounts(context.Background(), testTenantID, nil, "")
	require.NoError(t, err)
	require.Empty(t, counts)
}

func TestPurchaseAmounts_SumsPaidOrders(t *testing.T) {
	repo := repository.NewMemoryClinicRepo()
	paidAt := testNow.AddDate(0, 0, -5)
	repo.AddOrder(&domain.Order{TenantID: testTenantID, PatientID: "P1", Amount: 3000, Status: domain.OrderStatusPaid, PaidAt: &paidAt})
	repo.AddOrder(&domain.Order{TenantID: testTenantID, PatientID: "P1", Amount: 4500, Status: domain.OrderStatusPaid, PaidAt: &paidAt})
	// 未支付/已退款不计入
	repo.AddOrder(&domain.Order{TenantID: testTenantID, PatientID: "P1", Amount: 9999, Status: domain.OrderStatusPending})
	repo.AddOrder(&domain.Order{TenantID: testTenantID, PatientID: "P2", Amount: 1000, Status: domain.OrderStatusRefunded, PaidAt: &paidAt})

	svc := newTestMetricsService(repo)
	amounts, err := svc.PurchaseAmounts(context.Background(), testTenantID, []string{"P1", "P2"}, "")
	require.NoError(t, err)
	require.Equal(t, int64(7500), amounts["P1"])
	_, ok := amounts["P2"]
	require.False(t, ok)
}

func TestLastVisitDates_KeepsMostRecent(t *testing.T) {
	repo := repository.NewMemoryClinicRepo()
	older := testNow.AddDate(0, 0, -30)
	newer := testNow.AddDate(0, 0, -3)
	addVisit(repo, "P1", older)
	addVisit(repo, "P1", newer)

	svc := newTestMetricsService(repo)
	last, err := svc.LastVisitDates(context.Background(), testTenantID, []string{"P1", "P2"})
	require.NoError(t, err)
	require.Equal(t, newer, last["P1"])
	_, ok := last["P2"]
	require.False(t, ok)
}

func TestReorderCounts(t *testing.T) {
	repo := repository.NewMemoryClinicRepo()
	repo.AddReorder(&domain.Reorder{TenantID: testTenantID, PatientID: "P1", CreatedAt: testNow.AddDate(0, 0, -400)})
	repo.AddReorder(&domain.Reorder{TenantID: testTenantID, PatientID: "P1", CreatedAt: testNow.AddDate(0, 0, -1)})

	svc := newTestMetricsService(repo)
	counts, err := svc.ReorderCounts(context.Background(), testTenantID, []string{"P1"})
	require.NoError(t, err)
	// 再处方不做日期过滤，两条都算
	require.Equal(t, 2, counts["P1"])
}

func TestNextReservations_EarliestUpcomingWins(t *testing.T) {
	repo := repository.NewMemoryClinicRepo()
	sooner := testNow.AddDate(0, 0, 3)
	later := testNow.AddDate(0, 0, 10)
	past := testNow.AddDate(0, 0, -3)
	repo.AddReservation(&domain.Reservation{TenantID: testTenantID, PatientID: "P1", ReservedAt: later, Status: domain.ReservationStatusConfirmed})
	repo.AddReservation(&domain.Reservation{TenantID: testTenantID, PatientID: "P1", ReservedAt: sooner, Status: domain.ReservationStatusConfirmed})
	// 过去的预约不算"下次"
	repo.AddReservation(&domain.Reservation{TenantID: testTenantID, PatientID: "P2", ReservedAt: past, Status: domain.ReservationStatusConfirmed})

	svc := newTestMetricsService(repo)
	next, err := svc.NextReservations(context.Background(), testTenantID, []string{"P1", "P2"})
	require.NoError(t, err)
	require.Equal(t, sooner, next["P1"])
	_, ok := next["P2"]
	require.False(t, ok)
}
