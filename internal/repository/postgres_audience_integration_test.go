// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/config"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/database"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
)

func testEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func testEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// 获取测试数据库连接
func getTestDB(t *testing.T) *sql.DB {
	cfg := &config.DatabaseConfig{
		Host:     testEnv("TEST_DB_HOST", "localhost"),
		Port:     testEnvInt("TEST_DB_PORT", 5432),
		User:     testEnv("TEST_DB_USER", "postgres"),
		Password: testEnv("TEST_DB_PASSWORD", "postgres"),
		Database: testEnv("TEST_DB_NAME", "clinicdb"),
		SSLMode:  testEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	return db
}

const integrationTenantID = "00000000-0000-0000-0000-000000000997"

// 造测试数据：3个患者，P1有两条问诊记录
func seedAudienceFixtures(t *testing.T, db *sql.DB) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	patients := []struct {
		id, name string
		lineID   *string
	}{
		{"IT-P1", "Test Patient 001", strP("U-IT-001")},
		{"IT-P2", "Test Patient 002", strP("U-IT-002")},
		{"IT-P3", "Test Patient 003", nil},
	}
	for i, p := range patients {
		_, err := db.Exec(
			`INSERT INTO patients (tenant_id, patient_id, patient_name, line_user_id, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (tenant_id, patient_id) DO UPDATE SET patient_name = EXCLUDED.patient_name`,
			integrationTenantID, p.id, p.name, p.lineID, base.Add(time.Duration(i)*time.Hour),
		)
		if err != nil {
			t.Fatalf("Failed to insert patient: %v", err)
		}
	}

	intakes := []struct {
		patientID string
		at        time.Time
	}{
		{"IT-P1", base},
		{"IT-P2", base.Add(1 * time.Hour)},
		{"IT-P3", base.Add(2 * time.Hour)},
		{"IT-P1", base.Add(3 * time.Hour)},
	}
	for _, in := range intakes {
		_, err := db.Exec(
			`INSERT INTO intake_records (tenant_id, patient_id, created_at) VALUES ($1, $2, $3)`,
			integrationTenantID, in.patientID, in.at,
		)
		if err != nil {
			t.Fatalf("Failed to insert intake record: %v", err)
		}
	}

	_, err := db.Exec(
		`INSERT INTO patient_tags (tenant_id, patient_id, tag_id) VALUES ($1, 'IT-P1', 501), ($1, 'IT-P2', 501)
		 ON CONFLICT DO NOTHING`,
		integrationTenantID,
	)
	if err != nil {
		t.Fatalf("Failed to insert patient tags: %v", err)
	}
}

func cleanupAudienceFixtures(db *sql.DB) {
	db.Exec(`DELETE FROM patient_tags WHERE tenant_id = $1`, integrationTenantID)
	db.Exec(`DELETE FROM intake_records WHERE tenant_id = $1`, integrationTenantID)
	db.Exec(`DELETE FROM patients WHERE tenant_id = $1`, integrationTenantID)
}

func strP(s string) *string { return &s }

func TestPostgresIntakeRepository_ListIntakePage(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	seedAudienceFixtures(t, db)
	defer cleanupAudienceFixtures(db)

	repo := NewPostgresIntakeRepository(db)
	ctx := context.Background()

	// 全量读：created_at DESC，最近的问诊在前
	records, err := repo.ListIntakePage(ctx, integrationTenantID, 0, 100)
	if err != nil {
		t.Fatalf("ListIntakePage failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected 4 intake records, got %d", len(records))
	}
	if records[0].PatientID != "IT-P1" {
		t.Errorf("Expected newest record for IT-P1, got %s", records[0].PatientID)
	}
	for i := 1; i < len(records); i++ {
		if records[i].CreatedAt.After(records[i-1].CreatedAt) {
			t.Errorf("Records not in created_at DESC order at index %d", i)
		}
	}

	// 分页：窗口拼接后与全量一致
	var paged []*domain.IntakeRecord
	for offset := 0; ; offset += 2 {
		page, err := repo.ListIntakePage(ctx, integrationTenantID, offset, 2)
		if err != nil {
			t.Fatalf("ListIntakePage (paged) failed: %v", err)
		}
		paged = append(paged, page...)
		if len(page) < 2 {
			break
		}
	}
	if len(paged) != len(records) {
		t.Fatalf("Paged read returned %d records, full read returned %d", len(paged), len(records))
	}
	for i := range records {
		if paged[i].ID != records[i].ID {
			t.Errorf("Page order mismatch at index %d: %d vs %d", i, paged[i].ID, records[i].ID)
		}
	}
}

func TestPostgresPatientsRepository_ListByIDsPage(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	seedAudienceFixtures(t, db)
	defer cleanupAudienceFixtures(db)

	repo := NewPostgresPatientsRepository(db)
	ctx := context.Background()

	patients, err := repo.ListByIDsPage(ctx, integrationTenantID, []string{"IT-P1", "IT-P3", "IT-MISSING"}, 0, 100)
	if err != nil {
		t.Fatalf("ListByIDsPage failed: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("Expected 2 patients, got %d", len(patients))
	}
	if patients[0].PatientID != "IT-P1" || patients[1].PatientID != "IT-P3" {
		t.Errorf("Expected [IT-P1 IT-P3], got [%s %s]", patients[0].PatientID, patients[1].PatientID)
	}
	if !patients[0].HasLineUID() {
		t.Error("IT-P1 should have a line uid")
	}
	if patients[1].HasLineUID() {
		t.Error("IT-P3 should not have a line uid")
	}

	// 空 id 列表不回库
	patients, err = repo.ListByIDsPage(ctx, integrationTenantID, nil, 0, 100)
	if err != nil {
		t.Fatalf("ListByIDsPage (empty ids) failed: %v", err)
	}
	if len(patients) != 0 {
		t.Errorf("Expected 0 patients for empty id list, got %d", len(patients))
	}
}

func TestPostgresTagMembersRepository_ListByTagPage(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	seedAudienceFixtures(t, db)
	defer cleanupAudienceFixtures(db)

	repo := NewPostgresTagMembersRepository(db)
	ctx := context.Background()

	members, err := repo.ListByTagPage(ctx, integrationTenantID, 501, 0, 100)
	if err != nil {
		t.Fatalf("ListByTagPage failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("Expected 2 tag members, got %d", len(members))
	}

	members, err = repo.ListByTagPage(ctx, integrationTenantID, 999, 0, 100)
	if err != nil {
		t.Fatalf("ListByTagPage (unknown tag) failed: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("Expected 0 members for unknown tag, got %d", len(members))
	}
}

func TestPostgresBroadcastsRepository_Lifecycle(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresBroadcastsRepository(db)
	ctx := context.Background()

	broadcast := &domain.Broadcast{
		ID:        "00000000-0000-0000-0000-00000000b001",
		TenantID:  integrationTenantID,
		Title:     "Integration Broadcast",
		Messages:  []byte(`["hello"]`),
		Filter:    []byte(`{}`),
		Status:    domain.BroadcastStatusSending,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateBroadcast(ctx, broadcast); err != nil {
		t.Fatalf("CreateBroadcast failed: %v", err)
	}
	defer db.Exec(`DELETE FROM broadcast_logs WHERE broadcast_id = $1`, broadcast.ID)
	defer db.Exec(`DELETE FROM broadcasts WHERE id = $1`, broadcast.ID)

	logs := []*domain.BroadcastLog{
		{BroadcastID: broadcast.ID, TenantID: integrationTenantID, PatientID: "IT-P1", Status: domain.BroadcastLogSent},
		{BroadcastID: broadcast.ID, TenantID: integrationTenantID, PatientID: "IT-P3", Status: domain.BroadcastLogNoUID},
	}
	if err := repo.AddLogs(ctx, logs); err != nil {
		t.Fatalf("AddLogs failed: %v", err)
	}

	if err := repo.UpdateResult(ctx, integrationTenantID, broadcast.ID, domain.BroadcastStatusDone, 1, 0, 1); err != nil {
		t.Fatalf("UpdateResult failed: %v", err)
	}

	got, err := repo.GetBroadcast(ctx, integrationTenantID, broadcast.ID)
	if err != nil {
		t.Fatalf("GetBroadcast failed: %v", err)
	}
	if got.Status != domain.BroadcastStatusDone {
		t.Errorf("Expected status done, got %s", got.Status)
	}
	if got.SentCount != 1 || got.NoUIDCount != 1 {
		t.Errorf("Expected sent=1 no_uid=1, got sent=%d no_uid=%d", got.SentCount, got.NoUIDCount)
	}

	list, total, err := repo.ListBroadcasts(ctx, integrationTenantID, 1, 20)
	if err != nil {
		t.Fatalf("ListBroadcasts failed: %v", err)
	}
	if total < 1 {
		t.Errorf("Expected total >= 1, got %d", total)
	}
	found := false
	for _, b := range list {
		if b.ID == broadcast.ID {
			found = true
		}
	}
	if !found {
		t.Error("Created broadcast not found in list")
	}
}
