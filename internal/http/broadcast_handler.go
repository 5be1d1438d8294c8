package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/models"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/service"

	"go.uber.org/zap"
)

// BroadcastsHandler 广播管理 Handler
type BroadcastsHandler struct {
	broadcastService *service.BroadcastService
	logger           *zap.Logger
}

// NewBroadcastsHandler 创建广播管理 Handler
func NewBroadcastsHandler(broadcastService *service.BroadcastService, logger *zap.Logger) *BroadcastsHandler {
	return &BroadcastsHandler{
		broadcastService: broadcastService,
		logger:           logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *BroadcastsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch {
	case r.URL.Path == "/admin/api/v1/broadcasts/send" && r.Method == http.MethodPost:
		h.Send(w, r)
	case r.URL.Path == "/admin/api/v1/broadcasts/preview" && r.Method == http.MethodPost:
		h.Preview(w, r)
	case r.URL.Path == "/admin/api/v1/audience/export" && r.Method == http.MethodPost:
		h.ExportAudience(w, r)
	case r.URL.Path == "/admin/api/v1/broadcasts" && r.Method == http.MethodGet:
		h.ListBroadcasts(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/broadcasts/") && r.Method == http.MethodGet:
		h.GetBroadcast(w, r)
	case r.URL.Path == "/admin/api/v1/broadcasts/send" || r.URL.Path == "/admin/api/v1/broadcasts/preview" ||
		r.URL.Path == "/admin/api/v1/audience/export" || r.URL.Path == "/admin/api/v1/broadcasts":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// sendRequestBody 发送请求体
type sendRequestBody struct {
	Title    string               `json:"title"`
	Messages []string             `json:"messages"`
	Filter   domain.FilterRuleSet `json:"filter"`
}

// Send 执行广播发送
func (h *BroadcastsHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	var body sendRequestBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if len(body.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, Fail("messages is required"))
		return
	}

	result, err := h.broadcastService.Send(ctx, service.SendBroadcastRequest{
		TenantID: tenantID,
		Title:    body.Title,
		Messages: body.Messages,
		Filter:   body.Filter,
	})
	if err != nil {
		h.logger.Error("Broadcast send failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to send broadcast"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(result))
}

// previewRequestBody 预览/导出请求体
type previewRequestBody struct {
	Filter domain.FilterRuleSet `json:"filter"`
}

// Preview 受众预览（只解析不发送）
func (h *BroadcastsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	var body previewRequestBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	result, err := h.broadcastService.Preview(ctx, tenantID, body.Filter)
	if err != nil {
		h.logger.Error("Audience preview failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to preview audience"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(result))
}

// ExportAudience 导出解析结果为 Excel
func (h *BroadcastsHandler) ExportAudience(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	var body previewRequestBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	targets, err := h.broadcastService.ResolveTargets(ctx, tenantID, body.Filter)
	if err != nil {
		h.logger.Error("Audience export resolution failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to resolve audience"))
		return
	}

	data, err := GenerateAudienceExport(targets)
	if err != nil {
		h.logger.Error("Audience export generation failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("audience_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, _ = w.Write(data)
}

// ListBroadcasts 广播历史列表
func (h *BroadcastsHandler) ListBroadcasts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 20)

	broadcasts, total, err := h.broadcastService.ListBroadcasts(ctx, tenantID, page, size)
	if err != nil {
		h.logger.Error("List broadcasts failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list broadcasts"))
		return
	}

	items := make([]broadcastItem, 0, len(broadcasts))
	for _, b := range broadcasts {
		items = append(items, toBroadcastItem(b))
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"pagination": models.BackendPagination{
			Size:      size,
			Page:      page,
			Count:     total,
			Sort:      "created_at",
			Direction: -1,
		},
	}))
}

// GetBroadcast 广播详情
func (h *BroadcastsHandler) GetBroadcast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/admin/api/v1/broadcasts/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	broadcast, err := h.broadcastService.GetBroadcast(ctx, tenantID, id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail("broadcast not found"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(toBroadcastItem(broadcast)))
}

// broadcastItem 广播记录（前端格式）
type broadcastItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	SentCount   int    `json:"sent_count"`
	FailedCount int    `json:"failed_count"`
	NoUIDCount  int    `json:"no_uid_count"`
	CreatedAt   string `json:"created_at"`
}

func toBroadcastItem(b *domain.Broadcast) broadcastItem {
	return broadcastItem{
		ID:          b.ID,
		Title:       b.Title,
		Status:      b.Status,
		SentCount:   b.SentCount,
		FailedCount: b.FailedCount,
		NoUIDCount:  b.NoUIDCount,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
	}
}
