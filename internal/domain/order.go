package domain

import "time"

// Order 订单记录（对应 orders 表）
// 金额以最小货币单位（円）存储，status='paid' 才计入购买金额
type Order struct {
	ID        int64      `db:"id"`
	TenantID  string     `db:"tenant_id"`
	PatientID string     `db:"patient_id"`
	Amount    int64      `db:"amount"`
	Status    string     `db:"status"`
	PaidAt    *time.Time `db:"paid_at"`
}

// Order status 常量
const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusRefunded = "refunded"
)
