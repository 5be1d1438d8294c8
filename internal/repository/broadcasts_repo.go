package repository

import (
	"context"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
)

// BroadcastsRepository 广播记录数据访问
type BroadcastsRepository interface {
	// CreateBroadcast 落库一条广播记录（filter 原样保存）
	CreateBroadcast(ctx context.Context, b *domain.Broadcast) error

	// UpdateResult 回写发送结果计数和状态
	UpdateResult(ctx context.Context, tenantID, broadcastID, status string, sent, failed, noUID int) error

	// GetBroadcast 查询单条广播记录
	GetBroadcast(ctx context.Context, tenantID, broadcastID string) (*domain.Broadcast, error)

	// ListBroadcasts 查询广播历史（分页，created_at DESC）
	ListBroadcasts(ctx context.Context, tenantID string, page, size int) ([]*domain.Broadcast, int, error)

	// AddLogs 批量写入单条推送结果
	AddLogs(ctx context.Context, logs []*domain.BroadcastLog) error
}
