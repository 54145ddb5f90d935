// Package engine distributes household tasks among members and keeps the
// schedule consistent: single and household-wide allocation, the rotation
// sweep, absence reconciliation and the completion hook.
//
// Batch entry points are stateless between runs and safe to re-run; the only
// shared state is what they read from storage.
package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/metrics"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/points"
	"github.com/dukerupert/fairshare/internal/schedule"
	"github.com/dukerupert/fairshare/internal/store"
)

// PointsEngine turns a completion into points and xp into a level.
type PointsEngine interface {
	CalculatePoints(weight int, frequency model.Frequency, onTime bool, streakDays int) int
	LevelFor(xp int) int
}

// Planner is an alternative, possibly non-deterministic assignment strategy.
// Allocate consults it and falls back to the top-ranked candidate when it
// fails or names a member outside ranked.
type Planner interface {
	Choose(ctx context.Context, task model.Task, ranked []fairness.Ranked) (memberID int64, err error)
}

type Engine struct {
	households  *store.HouseholdStore
	members     *store.MemberStore
	tasks       *store.TaskStore
	assignments *store.AssignmentStore
	prefs       *store.PreferenceStore
	absences    *store.AbsenceStore
	rotations   *store.RotationStore
	reminders   *store.ReminderStore

	points   PointsEngine
	planner  Planner
	notifier Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
	pick     func(n int) int
}

type Option func(*Engine)

// WithClock overrides the engine's notion of now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the household time zone used for day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithPicker replaces the uniform random choice used by the AUTO absence
// fallback. pick(n) must return a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(e *Engine) { e.pick = pick }
}

func WithPlanner(p Planner) Option {
	return func(e *Engine) { e.planner = p }
}

func WithPointsEngine(p PointsEngine) Option {
	return func(e *Engine) { e.points = p }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// New builds an engine over the given database.
func New(db *sql.DB, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		points:   points.NewCalculator(),
		notifier: NopNotifier{},
		metrics:  metrics.NewNop(),
		logger:   logger,
		loc:      time.Local,
		now:      time.Now,
		pick:     rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.households = store.NewHouseholdStore(db)
	e.members = store.NewMemberStore(db)
	e.tasks = store.NewTaskStore(db)
	e.assignments = store.NewAssignmentStore(db)
	e.prefs = store.NewPreferenceStore(db)
	e.absences = store.NewAbsenceStore(db, e.loc)
	e.rotations = store.NewRotationStore(db)
	e.reminders = store.NewReminderStore(db)
	return e
}

// Location returns the time zone used for day boundaries.
func (e *Engine) Location() *time.Location {
	return e.loc
}

func (e *Engine) clock() time.Time {
	return e.now().In(e.loc)
}

func (e *Engine) getTask(id int64) (*model.Task, error) {
	t, err := e.tasks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &NotFoundError{Entity: "task", ID: id}
	}
	return t, nil
}

// candidates assembles the scoring inputs for every active member of the
// task's household.
func (e *Engine) candidates(task model.Task, target time.Time) ([]fairness.Candidate, error) {
	members, err := e.members.ListActiveByHousehold(task.HouseholdID)
	if err != nil {
		return nil, err
	}
	prefs, err := e.prefs.ListByTask(task.ID)
	if err != nil {
		return nil, err
	}
	load, err := e.assignments.CountOpenByMember(task.HouseholdID)
	if err != nil {
		return nil, err
	}
	last, err := e.assignments.LastCompletionByMember(task.ID)
	if err != nil {
		return nil, err
	}
	absences, err := e.absences.ListByHouseholdOn(task.HouseholdID, target)
	if err != nil {
		return nil, err
	}
	absentBy := make(map[int64][]model.MemberAbsence)
	for _, a := range absences {
		absentBy[a.MemberID] = append(absentBy[a.MemberID], a)
	}

	pool := make([]fairness.Candidate, 0, len(members))
	for _, m := range members {
		c := fairness.Candidate{
			Member:          m,
			Preference:      prefs[m.ID],
			OpenAssignments: load[m.ID],
			Absences:        absentBy[m.ID],
		}
		if t, ok := last[m.ID]; ok {
			c.LastCompleted = &t
		}
		pool = append(pool, c)
	}
	return pool, nil
}

func (e *Engine) scoreTask(task model.Task, target time.Time, opts fairness.Options) (fairness.Result, error) {
	target = target.In(e.loc)
	pool, err := e.candidates(task, target)
	if err != nil {
		return fairness.Result{}, err
	}
	return fairness.Score(task, pool, target, opts), nil
}

// Score ranks the task's household members for targetDate. An empty ranking
// is not an error; callers decide whether that means skip or fail.
func (e *Engine) Score(taskID int64, targetDate time.Time, opts fairness.Options) (fairness.Result, error) {
	task, err := e.getTask(taskID)
	if err != nil {
		return fairness.Result{}, err
	}
	return e.scoreTask(*task, targetDate, opts)
}

// ComputeDueDate exposes the due-date rule in the engine's time zone.
func (e *Engine) ComputeDueDate(freq model.Frequency, from time.Time) time.Time {
	return schedule.ComputeDueDate(freq, from.In(e.loc))
}
