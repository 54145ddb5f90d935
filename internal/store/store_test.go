package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/fairshare/internal/database"
	"github.com/dukerupert/fairshare/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seed creates a household with one adult and one task.
func seed(t *testing.T, db *sql.DB) (*model.Household, *model.Member, *model.Task) {
	t.Helper()
	h, err := NewHouseholdStore(db).Create("Casa")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	m, err := NewMemberStore(db).Create(h.ID, "Alice", model.MemberAdult)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	task, err := NewTaskStore(db).Create(h.ID, "Lavar platos", model.FrequencyDaily, 2, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return h, m, task
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
