package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/fairshare/internal/model"
)

// AbsenceStore persists absence windows as calendar dates and materializes
// them in the configured location.
type AbsenceStore struct {
	db  *sql.DB
	loc *time.Location
}

func NewAbsenceStore(db *sql.DB, loc *time.Location) *AbsenceStore {
	if loc == nil {
		loc = time.Local
	}
	return &AbsenceStore{db: db, loc: loc}
}

func (s *AbsenceStore) scanAbsence(scanner interface{ Scan(...any) error }) (*model.MemberAbsence, error) {
	var a model.MemberAbsence
	var start, end string
	var assignTo sql.NullInt64
	err := scanner.Scan(&a.ID, &a.MemberID, &start, &end, &a.Reason, &a.Policy, &assignTo, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if a.StartDate, err = time.ParseInLocation(model.DateLayout, start, s.loc); err != nil {
		return nil, fmt.Errorf("parse start_date %q: %w", start, err)
	}
	if a.EndDate, err = time.ParseInLocation(model.DateLayout, end, s.loc); err != nil {
		return nil, fmt.Errorf("parse end_date %q: %w", end, err)
	}
	if assignTo.Valid {
		a.AssignToMemberID = &assignTo.Int64
	}
	return &a, nil
}

func (s *AbsenceStore) scanAbsences(rows *sql.Rows) ([]model.MemberAbsence, error) {
	var absences []model.MemberAbsence
	for rows.Next() {
		a, err := s.scanAbsence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan absence: %w", err)
		}
		absences = append(absences, *a)
	}
	return absences, rows.Err()
}

const absenceCols = `id, member_id, start_date, end_date, reason, policy, assign_to_member_id, created_at`

// Create validates and inserts an absence. Windows for the same member may
// not overlap.
func (s *AbsenceStore) Create(a model.MemberAbsence) (*model.MemberAbsence, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	start := model.DateKey(a.StartDate.In(s.loc))
	end := model.DateKey(a.EndDate.In(s.loc))

	var assignTo sql.NullInt64
	if a.AssignToMemberID != nil {
		assignTo = sql.NullInt64{Int64: *a.AssignToMemberID, Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var overlapping int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM member_absences WHERE member_id = ? AND start_date <= ? AND end_date >= ?`,
		a.MemberID, end, start,
	).Scan(&overlapping)
	if err != nil {
		return nil, fmt.Errorf("check absence overlap: %w", err)
	}
	if overlapping > 0 {
		return nil, ErrAbsenceOverlap
	}

	result, err := tx.Exec(
		`INSERT INTO member_absences (member_id, start_date, end_date, reason, policy, assign_to_member_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.MemberID, start, end, a.Reason, string(a.Policy), assignTo,
	)
	if err != nil {
		return nil, fmt.Errorf("insert absence: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit absence: %w", err)
	}
	return s.GetByID(id)
}

func (s *AbsenceStore) GetByID(id int64) (*model.MemberAbsence, error) {
	row := s.db.QueryRow(`SELECT `+absenceCols+` FROM member_absences WHERE id = ?`, id)
	a, err := s.scanAbsence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get absence: %w", err)
	}
	return a, nil
}

func (s *AbsenceStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM member_absences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete absence: %w", err)
	}
	return nil
}

// ListActiveOn returns every absence whose window contains the calendar day of t.
func (s *AbsenceStore) ListActiveOn(t time.Time) ([]model.MemberAbsence, error) {
	day := model.DateKey(t.In(s.loc))
	rows, err := s.db.Query(
		`SELECT `+absenceCols+` FROM member_absences WHERE start_date <= ? AND end_date >= ? ORDER BY id`,
		day, day,
	)
	if err != nil {
		return nil, fmt.Errorf("list active absences: %w", err)
	}
	defer rows.Close()
	return s.scanAbsences(rows)
}

// ListByHouseholdOn returns absences of the household's members that contain
// the calendar day of t.
func (s *AbsenceStore) ListByHouseholdOn(householdID int64, t time.Time) ([]model.MemberAbsence, error) {
	day := model.DateKey(t.In(s.loc))
	rows, err := s.db.Query(
		`SELECT a.id, a.member_id, a.start_date, a.end_date, a.reason, a.policy, a.assign_to_member_id, a.created_at
		 FROM member_absences a JOIN members m ON m.id = a.member_id
		 WHERE m.household_id = ? AND a.start_date <= ? AND a.end_date >= ?
		 ORDER BY a.id`,
		householdID, day, day,
	)
	if err != nil {
		return nil, fmt.Errorf("list household absences: %w", err)
	}
	defer rows.Close()
	return s.scanAbsences(rows)
}

func (s *AbsenceStore) ListByMember(memberID int64) ([]model.MemberAbsence, error) {
	rows, err := s.db.Query(
		`SELECT `+absenceCols+` FROM member_absences WHERE member_id = ? ORDER BY start_date`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list member absences: %w", err)
	}
	defer rows.Close()
	return s.scanAbsences(rows)
}
