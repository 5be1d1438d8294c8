package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/repository"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 预览计数缓存 TTL
const previewCacheTTL = 60 * time.Second

// 预览响应里最多返回多少条样本
const previewSampleLimit = 10

// BroadcastService 广播发送服务
// 解析受众 → 落库广播记录 → 合并下次预约 → 模板替换 → 分批推送
type BroadcastService struct {
	audience   *AudienceService
	metrics    *BehaviorMetricsService
	broadcasts repository.BroadcastsRepository
	pusher     Pusher
	kv         store.KV
	logger     *zap.Logger

	batchSize           int
	reservationFallback string

	// 测试覆盖当前时间用
	now func() time.Time
}

// NewBroadcastService 创建广播发送服务
func NewBroadcastService(
	audience *AudienceService,
	metrics *BehaviorMetricsService,
	broadcasts repository.BroadcastsRepository,
	pusher Pusher,
	kv store.KV,
	batchSize int,
	reservationFallback string,
	logger *zap.Logger,
) *BroadcastService {
	if batchSize <= 0 {
		batchSize = 10
	}
	if reservationFallback == "" {
		reservationFallback = "未定"
	}
	return &BroadcastService{
		audience:            audience,
		metrics:             metrics,
		broadcasts:          broadcasts,
		pusher:              pusher,
		kv:                  kv,
		batchSize:           batchSize,
		reservationFallback: reservationFallback,
		logger:              logger,
		now:                 time.Now,
	}
}

// SendBroadcastRequest 广播发送请求
type SendBroadcastRequest struct {
	TenantID string
	Title    string
	Messages []string
	Filter   domain.FilterRuleSet
}

// SendBroadcastResult 广播发送结果
type SendBroadcastResult struct {
	BroadcastID string `json:"broadcast_id"`
	Total       int    `json:"total"`
	Sent        int    `json:"sent"`
	Failed      int    `json:"failed"`
	NoUID       int    `json:"no_uid"`
}

// Send 执行一次广播发送
// 受众解析失败不会使整个请求失败：仍然落库广播记录（零目标），
// 单条推送失败也只计入 failed 计数，不向调用方抛错
func (s *BroadcastService) Send(ctx context.Context, req SendBroadcastRequest) (*SendBroadcastResult, error) {
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	targets, err := s.audience.Resolve(ctx, req.TenantID, req.Filter)
	if err != nil {
		// 解析失败按零目标继续：广播记录仍然要落库
		s.logger.Warn("Audience resolution failed, proceeding with zero targets",
			zap.String("tenant_id", req.TenantID), zap.Error(err))
		targets = nil
	}

	messagesJSON, err := json.Marshal(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}
	filterJSON, err := json.Marshal(req.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filter: %w", err)
	}

	broadcast := &domain.Broadcast{
		ID:        uuid.NewString(),
		TenantID:  req.TenantID,
		Title:     req.Title,
		Messages:  messagesJSON,
		Filter:    filterJSON,
		Status:    domain.BroadcastStatusSending,
		CreatedAt: s.now(),
	}
	if err := s.broadcasts.CreateBroadcast(ctx, broadcast); err != nil {
		return nil, fmt.Errorf("failed to create broadcast record: %w", err)
	}

	next, err := s.metrics.NextReservations(ctx, req.TenantID, targetIDs(targets))
	if err != nil {
		s.logger.Warn("Next reservation fetch failed, templates fall back",
			zap.String("broadcast_id", broadcast.ID), zap.Error(err))
		next = map[string]time.Time{}
	}

	sent, failed, noUID, logs := s.dispatch(ctx, broadcast, targets, req.Messages, next)

	if err := s.broadcasts.AddLogs(ctx, logs); err != nil {
		s.logger.Warn("Failed to persist broadcast logs",
			zap.String("broadcast_id", broadcast.ID), zap.Error(err))
	}
	if err := s.broadcasts.UpdateResult(ctx, req.TenantID, broadcast.ID, domain.BroadcastStatusDone, sent, failed, noUID); err != nil {
		s.logger.Warn("Failed to update broadcast result",
			zap.String("broadcast_id", broadcast.ID), zap.Error(err))
	}

	s.logger.Info("Broadcast finished",
		zap.String("broadcast_id", broadcast.ID),
		zap.Int("total", len(targets)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
		zap.Int("no_uid", noUID),
	)

	return &SendBroadcastResult{
		BroadcastID: broadcast.ID,
		Total:       len(targets),
		Sent:        sent,
		Failed:      failed,
		NoUID:       noUID,
	}, nil
}

// dispatch 分批推送
// 批内并发、批间串行：第 N 批全部落定后才开始第 N+1 批；
// 单条失败不影响同批的其它推送
func (s *BroadcastService) dispatch(ctx context.Context, broadcast *domain.Broadcast, targets []domain.BroadcastTarget, messages []string, next map[string]time.Time) (sent, failed, noUID int, logs []*domain.BroadcastLog) {
	var mu sync.Mutex

	for batchStart := 0; batchStart < len(targets); batchStart += s.batchSize {
		batchEnd := batchStart + s.batchSize
		if batchEnd > len(targets) {
			batchEnd = len(targets)
		}

		var wg sync.WaitGroup
		for _, target := range targets[batchStart:batchEnd] {
			if !target.HasLineUID() {
				mu.Lock()
				noUID++
				logs = append(logs, &domain.BroadcastLog{
					BroadcastID: broadcast.ID,
					TenantID:    broadcast.TenantID,
					PatientID:   target.PatientID,
					Status:      domain.BroadcastLogNoUID,
				})
				mu.Unlock()
				continue
			}

			wg.Add(1)
			go func(target domain.BroadcastTarget) {
				defer wg.Done()

				rendered := make([]string, 0, len(messages))
				for _, m := range messages {
					rendered = append(rendered, s.renderTemplate(m, target, next))
				}

				err := s.pusher.PushMessage(ctx, *target.LineUserID, rendered)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed++
					logs = append(logs, &domain.BroadcastLog{
						BroadcastID: broadcast.ID,
						TenantID:    broadcast.TenantID,
						PatientID:   target.PatientID,
						Status:      domain.BroadcastLogFailed,
						Detail:      err.Error(),
					})
					s.logger.Warn("Push failed",
						zap.String("broadcast_id", broadcast.ID),
						zap.String("patient_id", target.PatientID),
						zap.Error(err))
					return
				}
				sent++
				logs = append(logs, &domain.BroadcastLog{
					BroadcastID: broadcast.ID,
					TenantID:    broadcast.TenantID,
					PatientID:   target.PatientID,
					Status:      domain.BroadcastLogSent,
				})
			}(target)
		}
		wg.Wait()
	}
	return sent, failed, noUID, logs
}

// renderTemplate 消息模板替换
// {name} → 患者姓名，{next_reservation} → 下次预约时间（无预约时用 fallback 文案）
func (s *BroadcastService) renderTemplate(text string, target domain.BroadcastTarget, next map[string]time.Time) string {
	out := strings.ReplaceAll(text, "{name}", target.PatientName)
	if strings.Contains(out, "{next_reservation}") {
		replacement := s.reservationFallback
		if d, ok := next[target.PatientID]; ok {
			replacement = d.Format("2006-01-02 15:04")
		}
		out = strings.ReplaceAll(out, "{next_reservation}", replacement)
	}
	return out
}

// PreviewResult 受众预览结果
type PreviewResult struct {
	Count     int                      `json:"count"`
	Reachable int                      `json:"reachable"`
	Sample    []domain.BroadcastTarget `json:"sample"`
}

// Preview 只解析不发送，返回命中人数和样本
// 结果按筛选规则哈希缓存 60 秒（同一规则的反复预览不重复回库）
func (s *BroadcastService) Preview(ctx context.Context, tenantID string, filter domain.FilterRuleSet) (*PreviewResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	cacheKey, err := previewCacheKey(tenantID, filter)
	if err == nil && s.kv != nil {
		if cached, cacheErr := s.kv.Get(ctx, cacheKey); cacheErr == nil {
			var result PreviewResult
			if json.Unmarshal([]byte(cached), &result) == nil {
				return &result, nil
			}
		}
	}

	targets, err := s.audience.Resolve(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience: %w", err)
	}

	result := &PreviewResult{Count: len(targets)}
	for _, t := range targets {
		if t.HasLineUID() {
			result.Reachable++
		}
		if len(result.Sample) < previewSampleLimit {
			result.Sample = append(result.Sample, t)
		}
	}

	if s.kv != nil {
		if payload, marshalErr := json.Marshal(result); marshalErr == nil {
			if cacheErr := s.kv.Set(ctx, cacheKey, string(payload), previewCacheTTL); cacheErr != nil {
				s.logger.Debug("Preview cache write failed", zap.Error(cacheErr))
			}
		}
	}
	return result, nil
}

// ResolveTargets 解析目标列表（导出等场景直接复用）
func (s *BroadcastService) ResolveTargets(ctx context.Context, tenantID string, filter domain.FilterRuleSet) ([]domain.BroadcastTarget, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	return s.audience.Resolve(ctx, tenantID, filter)
}

// GetBroadcast 查询单条广播记录
func (s *BroadcastService) GetBroadcast(ctx context.Context, tenantID, broadcastID string) (*domain.Broadcast, error) {
	return s.broadcasts.GetBroadcast(ctx, tenantID, broadcastID)
}

// ListBroadcasts 查询广播历史
func (s *BroadcastService) ListBroadcasts(ctx context.Context, tenantID string, page, size int) ([]*domain.Broadcast, int, error) {
	return s.broadcasts.ListBroadcasts(ctx, tenantID, page, size)
}

func targetIDs(targets []domain.BroadcastTarget) []string {
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.PatientID)
	}
	return ids
}

// previewCacheKey audience:cnt:<tenant>:<sha256(filter json)>
func previewCacheKey(tenantID string, filter domain.FilterRuleSet) (string, error) {
	payload, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return "audience:cnt:" + tenantID + ":" + hex.EncodeToString(sum[:]), nil
}
