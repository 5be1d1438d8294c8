package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
)

// MemoryClinicRepo: 用于 DB 未就绪时的联测和单元测试
// - 按 tenant_id 隔离
// - 一个结构体同时实现受众/行为相关的全部只读 Repository 接口
//   （问诊、患者、标签、标记、字段值、预约、订单、再处方）
// - 窗口查询语义与 Postgres 实现一致（排序后按 offset/limit 切片）
type MemoryClinicRepo struct {
	mu sync.RWMutex

	intake       map[string][]*domain.IntakeRecord // tenantID -> records
	patients     map[string]map[string]*domain.Patient
	tagMembers   map[string][]*domain.TagMember
	markMembers  map[string][]*domain.MarkMember
	fieldValues  map[string][]*domain.FieldValue
	reservations map[string][]*domain.Reservation
	orders       map[string][]*domain.Order
	reorders     map[string][]*domain.Reorder
}

func NewMemoryClinicRepo() *MemoryClinicRepo {
	return &MemoryClinicRepo{
		intake:       map[string][]*domain.IntakeRecord{},
		patients:     map[string]map[string]*domain.Patient{},
		tagMembers:   map[string][]*domain.TagMember{},
		markMembers:  map[string][]*domain.MarkMember{},
		fieldValues:  map[string][]*domain.FieldValue{},
		reservations: map[string][]*domain.Reservation{},
		orders:       map[string][]*domain.Order{},
		reorders:     map[string][]*domain.Reorder{},
	}
}

// 确保实现了接口
var (
	_ IntakeRepository       = (*MemoryClinicRepo)(nil)
	_ PatientsRepository     = (*MemoryClinicRepo)(nil)
	_ TagMembersRepository   = (*MemoryClinicRepo)(nil)
	_ MarksRepository        = (*MemoryClinicRepo)(nil)
	_ FieldValuesRepository  = (*MemoryClinicRepo)(nil)
	_ ReservationsRepository = (*MemoryClinicRepo)(nil)
	_ OrdersRepository       = (*MemoryClinicRepo)(nil)
	_ ReordersRepository     = (*MemoryClinicRepo)(nil)
)

// ---- seed helpers（联测/单测造数用）----

func (r *MemoryClinicRepo) AddPatient(p *domain.Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.patients[p.TenantID] == nil {
		r.patients[p.TenantID] = map[string]*domain.Patient{}
	}
	r.patients[p.TenantID][p.PatientID] = p
}

func (r *MemoryClinicRepo) AddIntake(rec *domain.IntakeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intake[rec.TenantID] = append(r.intake[rec.TenantID], rec)
}

func (r *MemoryClinicRepo) AddTagMember(m *domain.TagMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tagMembers[m.TenantID] = append(r.tagMembers[m.TenantID], m)
}

func (r *MemoryClinicRepo) AddMarkMember(m *domain.MarkMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markMembers[m.TenantID] = append(r.markMembers[m.TenantID], m)
}

func (r *MemoryClinicRepo) AddFieldValue(v *domain.FieldValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fieldValues[v.TenantID] = append(r.fieldValues[v.TenantID], v)
}

func (r *MemoryClinicRepo) AddReservation(rv *domain.Reservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[rv.TenantID] = append(r.reservations[rv.TenantID], rv)
}

func (r *MemoryClinicRepo) AddOrder(o *domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.TenantID] = append(r.orders[o.TenantID], o)
}

func (r *MemoryClinicRepo) AddReorder(ro *domain.Reorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reorders[ro.TenantID] = append(r.reorders[ro.TenantID], ro)
}

// ---- IntakeRepository ----

// ListIntakePage 按 created_at DESC 返回一个窗口（与 Postgres 实现同序）
func (r *MemoryClinicRepo) ListIntakePage(_ context.Context, tenantID string, offset, limit int) ([]*domain.IntakeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := append([]*domain.IntakeRecord(nil), r.intake[tenantID]...)
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return pageSlice(records, offset, limit), nil
}

// ---- PatientsRepository ----

func (r *MemoryClinicRepo) ListByIDsPage(_ context.Context, tenantID string, patientIDs []string, offset, limit int) ([]*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(patientIDs))
	for _, id := range patientIDs {
		wanted[id] = true
	}
	var matched []*domain.Patient
	for _, p := range r.patients[tenantID] {
		if wanted[p.PatientID] {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].PatientID < matched[j].PatientID })
	return pageSlice(matched, offset, limit), nil
}

// ---- TagMembersRepository ----

func (r *MemoryClinicRepo) ListByTagPage(_ context.Context, tenantID string, tagID int64, offset, limit int) ([]*domain.TagMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.TagMember
	for _, m := range r.tagMembers[tenantID] {
		if m.TagID == tagID {
			matched = append(matched, m)
		}
	}
	return pageSlice(matched, offset, limit), nil
}

// ---- MarksRepository ----

func (r *MemoryClinicRepo) ListByValuesPage(_ context.Context, tenantID string, values []string, offset, limit int) ([]*domain.MarkMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[v] = true
	}
	var matched []*domain.MarkMember
	for _, m := range r.markMembers[tenantID] {
		if wanted[m.MarkValue] {
			matched = append(matched, m)
		}
	}
	return pageSlice(matched, offset, limit), nil
}

// ---- FieldValuesRepository ----

func (r *MemoryClinicRepo) ListByFieldPage(_ context.Context, tenantID string, fieldID int64, offset, limit int) ([]*domain.FieldValue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.FieldValue
	for _, v := range r.fieldValues[tenantID] {
		if v.FieldID == fieldID {
			matched = append(matched, v)
		}
	}
	return pageSlice(matched, offset, limit), nil
}

// ---- ReservationsRepository ----

func (r *MemoryClinicRepo) ListVisitedPage(_ context.Context, tenantID string, patientIDs []string, start, end time.Time, offset, limit int) ([]*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(patientIDs))
	for _, id := range patientIDs {
		wanted[id] = true
	}
	var matched []*domain.Reservation
	for _, rv := range r.reservations[tenantID] {
		if rv.Status != domain.ReservationStatusVisited || !wanted[rv.PatientID] {
			continue
		}
		if !start.IsZero() && rv.ReservedAt.Before(start) {
			continue
		}
		if !end.IsZero() && !rv.ReservedAt.Before(end) {
			continue
		}
		matched = append(matched, rv)
	}
	return pageSlice(matched, offset, limit), nil
}

func (r *MemoryClinicRepo) ListUpcomingPage(_ context.Context, tenantID string, patientIDs []string, after time.Time, offset, limit int) ([]*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(patientIDs))
	for _, id := range patientIDs {
		wanted[id] = true
	}
	var matched []*domain.Reservation
	for _, rv := range r.reservations[tenantID] {
		if rv.Status != domain.ReservationStatusConfirmed || !wanted[rv.PatientID] {
			continue
		}
		if rv.ReservedAt.Before(after) {
			continue
		}
		matched = append(matched, rv)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ReservedAt.Before(matched[j].ReservedAt) })
	return pageSlice(matched, offset, limit), nil
}

// ---- OrdersRepository ----

func (r *MemoryClinicRepo) ListPaidPage(_ context.Context, tenantID string, patientIDs []string, start, end time.Time, offset, limit int) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(patientIDs))
	for _, id := range patientIDs {
		wanted[id] = true
	}
	var matched []*domain.Order
	for _, o := range r.orders[tenantID] {
		if o.Status != domain.OrderStatusPaid || !wanted[o.PatientID] {
			continue
		}
		if o.PaidAt == nil {
			continue
		}
		if !start.IsZero() && o.PaidAt.Before(start) {
			continue
		}
		if !end.IsZero() && !o.PaidAt.Before(end) {
			continue
		}
		matched = append(matched, o)
	}
	return pageSlice(matched, offset, limit), nil
}

// ---- ReordersRepository ----

func (r *MemoryClinicRepo) ListByPatientsPage(_ context.Context, tenantID string, patientIDs []string, offset, limit int) ([]*domain.Reorder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(patientIDs))
	for _, id := range patientIDs {
		wanted[id] = true
	}
	var matched []*domain.Reorder
	for _, ro := range r.reorders[tenantID] {
		if wanted[ro.PatientID] {
			matched = append(matched, ro)
		}
	}
	return pageSlice(matched, offset, limit), nil
}

// pageSlice 按 offset/limit 切片（越界返回空）
func pageSlice[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
