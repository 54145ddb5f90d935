package store

import (
	"testing"

	"github.com/dukerupert/fairshare/internal/model"
)

func TestHouseholdCreate(t *testing.T) {
	hs := NewHouseholdStore(setupTestDB(t))

	h, err := hs.Create("Test Household")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if h.Name != "Test Household" {
		t.Errorf("name = %q, want %q", h.Name, "Test Household")
	}
	if h.ID == 0 {
		t.Error("expected non-zero ID")
	}
}

func TestHouseholdGetByIDNotFound(t *testing.T) {
	hs := NewHouseholdStore(setupTestDB(t))

	h, err := hs.GetByID(9999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if h != nil {
		t.Error("expected nil for nonexistent household")
	}
}

func TestHouseholdList(t *testing.T) {
	hs := NewHouseholdStore(setupTestDB(t))
	hs.Create("One")
	hs.Create("Two")

	list, err := hs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Name != "One" || list[1].Name != "Two" {
		t.Errorf("order = %q, %q", list[0].Name, list[1].Name)
	}
}

func TestMemberListActiveByHousehold(t *testing.T) {
	db := setupTestDB(t)
	h, alice, _ := seed(t, db)
	ms := NewMemberStore(db)

	bob, err := ms.Create(h.ID, "Bob", model.MemberTeen)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if bob.XP != 0 || bob.Level != 1 || !bob.IsActive {
		t.Errorf("new member = %+v, want xp 0 level 1 active", bob)
	}
	if err := ms.SetActive(alice.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	list, err := ms.ListActiveByHousehold(h.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != bob.ID {
		t.Errorf("active = %+v, want only Bob", list)
	}
}

func TestMemberCreateRejectsUnknownType(t *testing.T) {
	db := setupTestDB(t)
	h, _, _ := seed(t, db)

	if _, err := NewMemberStore(db).Create(h.ID, "Rex", model.MemberType("PET")); err == nil {
		t.Error("expected error for unknown member type")
	}
}

func TestTaskStore(t *testing.T) {
	db := setupTestDB(t)
	h, _, dishes := seed(t, db)
	ts := NewTaskStore(db)

	minAge := 12
	stove, err := ts.Create(h.ID, "Clean stove", model.FrequencyWeekly, 3, &minAge)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if stove.MinAge == nil || *stove.MinAge != 12 {
		t.Errorf("min_age = %v, want 12", stove.MinAge)
	}
	if dishes.MinAge != nil {
		t.Errorf("min_age = %v, want nil", *dishes.MinAge)
	}

	if err := ts.SetActive(dishes.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	list, err := ts.ListActiveByHousehold(h.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != stove.ID {
		t.Errorf("active tasks = %+v, want only stove", list)
	}

	got, err := ts.GetByID(9999)
	if err != nil || got != nil {
		t.Errorf("GetByID(9999) = %v, %v; want nil, nil", got, err)
	}
}

func TestPreferenceSetAndList(t *testing.T) {
	db := setupTestDB(t)
	_, alice, dishes := seed(t, db)
	ps := NewPreferenceStore(db)

	if err := ps.Set(alice.ID, dishes.ID, model.PreferenceDisliked); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ps.Set(alice.ID, dishes.ID, model.PreferencePreferred); err != nil {
		t.Fatalf("replace: %v", err)
	}

	prefs, err := ps.ListByTask(dishes.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if prefs[alice.ID] != model.PreferencePreferred {
		t.Errorf("pref = %q, want PREFERRED", prefs[alice.ID])
	}

	if err := ps.Delete(alice.ID, dishes.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	prefs, _ = ps.ListByTask(dishes.ID)
	if len(prefs) != 0 {
		t.Errorf("prefs after delete = %v", prefs)
	}
}
