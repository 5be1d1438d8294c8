package domain

import "time"

// Reservation 预约记录（对应 reservations 表）
// status='visited' 的记录是来院事实，用于行为指标统计；
// status='confirmed' 且 reserved_at 在未来的记录是"下次预约"候选
type Reservation struct {
	ID         int64     `db:"id"`
	TenantID   string    `db:"tenant_id"`
	PatientID  string    `db:"patient_id"`
	ReservedAt time.Time `db:"reserved_at"`
	Status     string    `db:"status"`
}

// Reservation status 常量
const (
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusVisited   = "visited"
	ReservationStatusCanceled  = "canceled"
	ReservationStatusNoShow    = "no_show"
)
