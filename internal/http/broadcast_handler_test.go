package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/repository"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/service"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTenantID = "00000000-0000-0000-0000-000000000901"

type okPusher struct{}

func (okPusher) PushMessage(context.Context, string, []string) error { return nil }

func strPtr(s string) *string { return &s }

func seedPatient(repo *repository.MemoryClinicRepo, id, name string, lineID *string, intakeAt time.Time) {
	repo.AddPatient(&domain.Patient{
		TenantID:    testTenantID,
		PatientID:   id,
		PatientName: name,
		LineUserID:  lineID,
		CreatedAt:   intakeAt,
	})
	repo.AddIntake(&domain.IntakeRecord{
		ID:        intakeAt.UnixNano(),
		TenantID:  testTenantID,
		PatientID: id,
		CreatedAt: intakeAt,
	})
}

func newTestHandler() *BroadcastsHandler {
	logger := zap.NewNop()
	repo := repository.NewMemoryClinicRepo()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	seedPatient(repo, "P1", "佐藤", strPtr("U001"), now.AddDate(0, 0, -3))
	seedPatient(repo, "P2", "鈴木", strPtr("U002"), now.AddDate(0, 0, -2))
	seedPatient(repo, "P3", "高橋", nil, now.AddDate(0, 0, -1))

	metrics := service.NewBehaviorMetricsService(repo, repo, repo, logger)
	audience := service.NewAudienceService(repo, repo, repo, repo, repo, metrics, logger)
	broadcasts := service.NewBroadcastService(audience, metrics, repository.NewMemoryBroadcastsRepo(), okPusher{}, store.NewMemoryKV(), 10, "未定", logger)
	return NewBroadcastsHandler(broadcasts, logger)
}

func doRequest(h *BroadcastsHandler, method, path, body string, withTenant bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if withTenant {
		req.Header.Set("X-Tenant-Id", testTenantID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBroadcastsHandler_Send(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/admin/api/v1/broadcasts/send",
		`{"title":"8月キャンペーン","messages":["{name}様、お知らせです"]}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Result[service.SendBroadcastResult]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, ResultSuccess, resp.Code)
	require.NotEmpty(t, resp.Result.BroadcastID)
	require.Equal(t, 3, resp.Result.Total)
	require.Equal(t, 2, resp.Result.Sent)
	require.Equal(t, 0, resp.Result.Failed)
	require.Equal(t, 1, resp.Result.NoUID)
}

func TestBroadcastsHandler_SendRequiresTenantHeader(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/admin/api/v1/broadcasts/send",
		`{"messages":["お知らせ"]}`, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Result[any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, ResultError, resp.Code)
}

func TestBroadcastsHandler_SendRequiresMessages(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/admin/api/v1/broadcasts/send", `{"title":"空"}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBroadcastsHandler_Preview(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/admin/api/v1/broadcasts/preview", `{"filter":{}}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Result[service.PreviewResult]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Result.Count)
	require.Equal(t, 2, resp.Result.Reachable)
	require.Len(t, resp.Result.Sample, 3)
}

func TestBroadcastsHandler_PreviewWithFilter(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/admin/api/v1/broadcasts/preview",
		`{"filter":{"include":{"conditions":[{"type":"has_line_uid"}]}}}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Result[service.PreviewResult]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Result.Count)
	require.Equal(t, 2, resp.Result.Reachable)
}

func TestBroadcastsHandler_ListAndGet(t *testing.T) {
	h := newTestHandler()

	sendRec := doRequest(h, http.MethodPost, "/admin/api/v1/broadcasts/send",
		`{"title":"履歴確認","messages":["お知らせ"]}`, true)
	require.Equal(t, http.StatusOK, sendRec.Code)
	var sendResp Result[service.SendBroadcastResult]
	require.NoError(t, json.Unmarshal(sendRec.Body.Bytes(), &sendResp))

	listRec := doRequest(h, http.MethodGet, "/admin/api/v1/broadcasts?page=1&size=20", "", true)
	require.Equal(t, http.StatusOK, listRec.Code)
	var listResp Result[struct {
		Items []broadcastItem `json:"items"`
	}]
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Result.Items, 1)
	require.Equal(t, "履歴確認", listResp.Result.Items[0].Title)
	require.Equal(t, domain.BroadcastStatusDone, listResp.Result.Items[0].Status)

	getRec := doRequest(h, http.MethodGet, "/admin/api/v1/broadcasts/"+sendResp.Result.BroadcastID, "", true)
	require.Equal(t, http.StatusOK, getRec.Code)
	var getResp Result[broadcastItem]
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &getResp))
	require.Equal(t, sendResp.Result.BroadcastID, getResp.Result.ID)
	require.Equal(t, 2, getResp.Result.SentCount)
}

func TestBroadcastsHandler_GetUnknownID(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, http.MethodGet, "/admin/api/v1/broadcasts/no-such-id", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBroadcastsHandler_MethodNotAllowed(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, http.MethodDelete, "/admin/api/v1/broadcasts", "", true)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBroadcastsHandler_UnknownPath(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, http.MethodGet, "/admin/api/v1/unknown", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBroadcastsHandler_ExportAudience(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/admin/api/v1/audience/export", `{"filter":{}}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	require.NotEmpty(t, rec.Body.Bytes())
}
