package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/fairshare/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var active int
	err := scanner.Scan(&m.ID, &m.HouseholdID, &m.Name, &m.Type, &active, &m.XP, &m.Level, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.IsActive = active != 0
	return &m, nil
}

const memberCols = `id, household_id, name, member_type, is_active, xp, level, created_at, updated_at`

func (s *MemberStore) Create(householdID int64, name string, memberType model.MemberType) (*model.Member, error) {
	if !memberType.Valid() {
		return nil, fmt.Errorf("invalid member type %q", memberType)
	}
	result, err := s.db.Exec(
		`INSERT INTO members (household_id, name, member_type) VALUES (?, ?, ?)`,
		householdID, name, string(memberType),
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// ListActiveByHousehold returns active members ordered by id.
func (s *MemberStore) ListActiveByHousehold(householdID int64) ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM members WHERE household_id = ? AND is_active = 1 ORDER BY id`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// SetActive soft-(de)activates a member. Members are never hard-deleted
// because assignments reference them.
func (s *MemberStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(
		`UPDATE members SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolToInt(active), id,
	)
	if err != nil {
		return fmt.Errorf("set member active: %w", err)
	}
	return nil
}
