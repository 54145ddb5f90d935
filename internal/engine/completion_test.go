package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fairshare/internal/model"
)

func TestComplete_CreditsPointsAndSpawnsNext(t *testing.T) {
	env := newTestEnv(t, testNow)
	hid := env.household(t)
	alice := env.member(t, hid, "Alice", model.MemberAdult)
	dishes := env.task(t, hid, "Lavar platos", model.FrequencyDaily, nil)

	a, err := env.eng.Allocate(context.Background(), hid, dishes.ID, time.Time{})
	require.NoError(t, err)

	res, err := env.eng.Complete(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, res.OnTime)
	assert.Equal(t, 1, res.StreakDays)
	// weight 1 x 10 x daily 1.0, +20% on time.
	assert.Equal(t, 12, res.Points)
	assert.Equal(t, model.StatusCompleted, res.Assignment.Status)
	require.NotNil(t, res.Assignment.PointsEarned)
	assert.Equal(t, 12, *res.Assignment.PointsEarned)
	require.NotNil(t, res.Assignment.CompletedAt)

	assert.Equal(t, alice.ID, res.Member.ID)
	assert.Equal(t, 12, res.Member.XP)
	assert.Equal(t, 1, res.Member.Level)

	require.NotNil(t, res.Next)
	assert.Equal(t, model.StatusPending, res.Next.Status)
	assert.NotEqual(t, a.ID, res.Next.ID)

	_, err = env.eng.Complete(context.Background(), a.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestComplete_LateAndStreak(t *testing.T) {
	env := newTestEnv(t, testNow)
	hid := env.household(t)
	alice := env.member(t, hid, "Alice", model.MemberAdult)
	trash := env.task(t, hid, "Trash", model.FrequencyWeekly, nil)
	dishes := env.task(t, hid, "Lavar platos", model.FrequencyOnce, nil)

	// A completion yesterday extends today's streak.
	prev, err := env.assignments.Create(dishes.ID, alice.ID, hid, endOfDay(2025, 3, 4))
	require.NoError(t, err)
	_, _, err = env.assignments.Complete(prev.ID, time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC), 5, env.eng.points.LevelFor)
	require.NoError(t, err)

	late, err := env.assignments.Create(trash.ID, alice.ID, hid, endOfDay(2025, 3, 3))
	require.NoError(t, err)

	res, err := env.eng.Complete(context.Background(), late.ID)
	require.NoError(t, err)
	assert.False(t, res.OnTime)
	assert.Equal(t, 2, res.StreakDays)
	// weight 1 x 10 x weekly 1.5, +5% streak.
	assert.Equal(t, 16, res.Points)
	assert.Equal(t, 21, res.Member.XP)
}

func TestComplete_OnceDoesNotRespawn(t *testing.T) {
	env := newTestEnv(t, testNow)
	hid := env.household(t)
	env.member(t, hid, "Alice", model.MemberAdult)
	couch := env.task(t, hid, "Move couch", model.FrequencyOnce, nil)

	a, err := env.eng.Allocate(context.Background(), hid, couch.ID, time.Time{})
	require.NoError(t, err)

	res, err := env.eng.Complete(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Next)

	list, err := env.assignments.ListByTask(couch.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestComplete_NoEligibleFollowUpStillCompletes(t *testing.T) {
	env := newTestEnv(t, testNow)
	hid := env.household(t)
	alice := env.member(t, hid, "Alice", model.MemberAdult)
	dishes := env.task(t, hid, "Lavar platos", model.FrequencyDaily, nil)

	a, err := env.eng.Allocate(context.Background(), hid, dishes.ID, time.Time{})
	require.NoError(t, err)
	require.NoError(t, env.members.SetActive(alice.ID, false))

	res, err := env.eng.Complete(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Assignment.Status)
	assert.Nil(t, res.Next)
}

func TestTransitions(t *testing.T) {
	env := newTestEnv(t, testNow)
	hid := env.household(t)
	env.member(t, hid, "Alice", model.MemberAdult)
	dishes := env.task(t, hid, "Lavar platos", model.FrequencyOnce, nil)

	a, err := env.eng.Allocate(context.Background(), hid, dishes.ID, time.Time{})
	require.NoError(t, err)

	_, err = env.eng.Verify(a.ID)
	require.ErrorIs(t, err, ErrInvalidTransition, "pending cannot be verified")

	started, err := env.eng.Start(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, started.Status)

	_, err = env.eng.Start(a.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	done, err := env.eng.Complete(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Assignment.Status)

	verified, err := env.eng.Verify(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, verified.Status)

	_, err = env.eng.Cancel(a.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.eng.Start(9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelFreesTask(t *testing.T) {
	env := newTestEnv(t, testNow)
	hid := env.household(t)
	env.member(t, hid, "Alice", model.MemberAdult)
	dishes := env.task(t, hid, "Lavar platos", model.FrequencyDaily, nil)

	a, err := env.eng.Allocate(context.Background(), hid, dishes.ID, time.Time{})
	require.NoError(t, err)
	cancelled, err := env.eng.Cancel(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	_, err = env.eng.Allocate(context.Background(), hid, dishes.ID, time.Time{})
	require.NoError(t, err)
}

func TestScheduleOverdueReminders(t *testing.T) {
	env := newTestEnv(t, testNow)
	hid := env.household(t)
	alice := env.member(t, hid, "Alice", model.MemberAdult)
	dishes := env.task(t, hid, "Lavar platos", model.FrequencyDaily, nil)
	trash := env.task(t, hid, "Trash", model.FrequencyWeekly, nil)

	overdue, err := env.assignments.Create(dishes.ID, alice.ID, hid, endOfDay(2025, 3, 4))
	require.NoError(t, err)
	_, err = env.assignments.Create(trash.ID, alice.ID, hid, endOfDay(2025, 3, 8))
	require.NoError(t, err)

	n, err := env.eng.ScheduleOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reminders, err := env.reminders.ListByAssignment(overdue.ID)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, model.ReminderOverdue, reminders[0].ReminderType)

	n, err = env.eng.ScheduleOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "overdue reminder is queued once")
}
