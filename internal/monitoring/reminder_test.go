package monitoring

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskfolio/taskfolio-be/internal/database"
	"github.com/taskfolio/taskfolio-be/internal/models"
	"github.com/taskfolio/taskfolio-be/internal/services"
	"github.com/taskfolio/taskfolio-be/internal/websocket"
)

type reminderFixture struct {
	db       *sql.DB
	reminder *Reminder
	tasks    *services.TaskService
	events   *services.EventService
	sessions *services.SessionService
	owner    models.User
}

func newReminderFixture(t *testing.T) *reminderFixture {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	hub := websocket.NewHub()
	eventSvc := services.NewEventService(db)
	taskSvc := services.NewTaskService(db, eventSvc, hub)
	sessionSvc := services.NewSessionService(db, time.Hour)

	userSvc := services.NewUserService(db, eventSvc)
	owner, err := userSvc.Register(services.RegisterParams{
		Username:        "testuser",
		FirstName:       "Test",
		LastName:        "User",
		Email:           "test@example.com",
		Password:        "securepassword",
		ConfirmPassword: "securepassword",
		MobileNumber:    "5551234567",
	})
	require.NoError(t, err)

	reminder, err := NewReminder("@every 15m", taskSvc, sessionSvc, eventSvc, hub)
	require.NoError(t, err)

	return &reminderFixture{
		db:       db,
		reminder: reminder,
		tasks:    taskSvc,
		events:   eventSvc,
		sessions: sessionSvc,
		owner:    owner,
	}
}

func (f *reminderFixture) dueEventCount(t *testing.T) int {
	t.Helper()
	events, err := f.events.GetRecentEventsForUser(f.owner.ID, 100)
	require.NoError(t, err)
	count := 0
	for _, e := range events {
		if e.Type == "task.due" {
			count++
		}
	}
	return count
}

func TestNewReminderRejectsBadSchedule(t *testing.T) {
	_, err := NewReminder("not a cron spec", nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestSweepFlagsDueTasksOnce(t *testing.T) {
	f := newReminderFixture(t)

	_, err := f.tasks.Create(f.owner.ID, "Overdue", "d", "2020-01-01")
	require.NoError(t, err)
	_, err = f.tasks.Create(f.owner.ID, "Far future", "d", "2099-01-01")
	require.NoError(t, err)

	f.reminder.sweep()
	assert.Equal(t, 1, f.dueEventCount(t))

	// Within the cooldown a second sweep stays silent.
	f.reminder.sweep()
	assert.Equal(t, 1, f.dueEventCount(t))
}

func TestSweepPrunesAlertedForGoneTasks(t *testing.T) {
	f := newReminderFixture(t)

	task, err := f.tasks.Create(f.owner.ID, "Overdue", "d", "2020-01-01")
	require.NoError(t, err)

	f.reminder.sweep()
	require.Contains(t, f.reminder.alerted, task.ID)

	require.NoError(t, f.tasks.Delete(task.ID, f.owner.ID))

	f.reminder.sweep()
	assert.NotContains(t, f.reminder.alerted, task.ID)
}

func TestSweepPurgesExpiredSessions(t *testing.T) {
	f := newReminderFixture(t)

	expired := services.NewSessionService(f.db, -time.Minute)
	session, err := expired.Establish(f.owner)
	require.NoError(t, err)

	f.reminder.sweep()

	_, err = f.sessions.Validate(session.ID)
	assert.ErrorIs(t, err, services.ErrAuth)
}
