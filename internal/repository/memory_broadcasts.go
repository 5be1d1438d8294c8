package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
)

// MemoryBroadcastsRepo: 用于 DB 未就绪时的联测和单元测试
type MemoryBroadcastsRepo struct {
	mu         sync.RWMutex
	broadcasts map[string]map[string]*domain.Broadcast // tenantID -> id -> broadcast
	logs       []*domain.BroadcastLog
}

func NewMemoryBroadcastsRepo() *MemoryBroadcastsRepo {
	return &MemoryBroadcastsRepo{
		broadcasts: map[string]map[string]*domain.Broadcast{},
	}
}

// 确保实现了接口
var _ BroadcastsRepository = (*MemoryBroadcastsRepo)(nil)

func (r *MemoryBroadcastsRepo) CreateBroadcast(_ context.Context, b *domain.Broadcast) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.TenantID == "" || b.ID == "" {
		return fmt.Errorf("tenant_id and broadcast id are required")
	}
	if r.broadcasts[b.TenantID] == nil {
		r.broadcasts[b.TenantID] = map[string]*domain.Broadcast{}
	}
	cp := *b
	r.broadcasts[b.TenantID][b.ID] = &cp
	return nil
}

func (r *MemoryBroadcastsRepo) UpdateResult(_ context.Context, tenantID, broadcastID, status string, sent, failed, noUID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.broadcasts[tenantID][broadcastID]
	if !ok {
		return fmt.Errorf("broadcast not found: %s", broadcastID)
	}
	b.Status = status
	b.SentCount = sent
	b.FailedCount = failed
	b.NoUIDCount = noUID
	return nil
}

func (r *MemoryBroadcastsRepo) GetBroadcast(_ context.Context, tenantID, broadcastID string) (*domain.Broadcast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.broadcasts[tenantID][broadcastID]
	if !ok {
		return nil, fmt.Errorf("broadcast not found: %s", broadcastID)
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryBroadcastsRepo) ListBroadcasts(_ context.Context, tenantID string, page, size int) ([]*domain.Broadcast, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}

	var all []*domain.Broadcast
	for _, b := range r.broadcasts[tenantID] {
		cp := *b
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	return pageSlice(all, (page-1)*size, size), total, nil
}

func (r *MemoryBroadcastsRepo) AddLogs(_ context.Context, logs []*domain.BroadcastLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, logs...)
	return nil
}

// Logs 返回已写入的推送结果（测试用）
func (r *MemoryBroadcastsRepo) Logs() []*domain.BroadcastLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*domain.BroadcastLog(nil), r.logs...)
}
