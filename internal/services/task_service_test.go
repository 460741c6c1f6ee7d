package services

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskfolio/taskfolio-be/internal/models"
	"github.com/taskfolio/taskfolio-be/internal/websocket"
)

func newTaskService(t *testing.T, db *sql.DB) *TaskService {
	t.Helper()
	return NewTaskService(db, NewEventService(db), websocket.NewHub())
}

func createTestUser(t *testing.T, db *sql.DB, username string) models.User {
	t.Helper()
	svc := NewUserService(db, NewEventService(db))
	user, err := svc.Register(RegisterParams{
		Username:        username,
		FirstName:       "Test",
		LastName:        "User",
		Email:           username + "@example.com",
		Password:        "securepassword",
		ConfirmPassword: "securepassword",
		MobileNumber:    "5551234567",
	})
	require.NoError(t, err)
	return user
}

func TestTaskLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	owner := createTestUser(t, db, "testuser")

	task, err := svc.Create(owner.ID, "New Task", "Test Description", "2022-12-31")
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
	assert.Equal(t, owner.ID, task.OwnerID)

	// Round trip: the stored date comes back exactly as given.
	got, err := svc.Get(task.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "2022-12-31", got.DueDate)

	tasks, err := svc.ListForOwner(owner.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	require.NoError(t, svc.Delete(task.ID, owner.ID))

	tasks, err = svc.ListForOwner(owner.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// Deleting the same task again reports it missing.
	err = svc.Delete(task.ID, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	owner := createTestUser(t, db, "testuser")

	cases := []struct {
		name        string
		taskName    string
		description string
		dueDate     string
	}{
		{"empty name", "", "desc", "2022-12-31"},
		{"empty description", "Task", "", "2022-12-31"},
		{"malformed date", "Task", "desc", "31-12-2022"},
		{"not a date", "Task", "desc", "someday"},
		{"name too long", strings.Repeat("x", models.TaskNameMaxLen+1), "desc", "2022-12-31"},
		{"description too long", "Task", strings.Repeat("x", models.TaskDescriptionMaxLen+1), "2022-12-31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(owner.ID, tc.taskName, tc.description, tc.dueDate)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	tasks, err := svc.ListForOwner(owner.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	owner := createTestUser(t, db, "testuser")

	task, err := svc.Create(owner.ID, "Original", "Original description", "2022-12-31")
	require.NoError(t, err)

	updated, err := svc.Update(task.ID, owner.ID, "Renamed", "New description", "2023-01-15")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "New description", updated.Description)
	assert.Equal(t, "2023-01-15", updated.DueDate)
	// Owner is immutable.
	assert.Equal(t, owner.ID, updated.OwnerID)

	_, err = svc.Update(99999, owner.ID, "Renamed", "New description", "2023-01-15")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(task.ID, owner.ID, "Renamed", "New description", "not-a-date")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOwnershipIsolation(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	task, err := svc.Create(alice.ID, "Alice's task", "private", "2022-12-31")
	require.NoError(t, err)

	// Alice's tasks never appear in Bob's list.
	bobTasks, err := svc.ListForOwner(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bobTasks)

	// Bob cannot read, edit or delete Alice's task.
	_, err = svc.Get(task.ID, bob.ID)
	assert.ErrorIs(t, err, ErrOwnership)

	_, err = svc.Update(task.ID, bob.ID, "hijacked", "hijacked", "2030-01-01")
	assert.ErrorIs(t, err, ErrOwnership)

	err = svc.Delete(task.ID, bob.ID)
	assert.ErrorIs(t, err, ErrOwnership)

	// The task is untouched for Alice.
	got, err := svc.Get(task.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice's task", got.Name)
	assert.Equal(t, "2022-12-31", got.DueDate)
}

func TestListDueOnOrBefore(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	owner := createTestUser(t, db, "testuser")

	_, err := svc.Create(owner.ID, "Overdue", "d", "2020-01-01")
	require.NoError(t, err)
	_, err = svc.Create(owner.ID, "Far future", "d", "2099-01-01")
	require.NoError(t, err)

	due, err := svc.ListDueOnOrBefore("2022-12-31")
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Overdue", due[0].Name)

	_, err = svc.ListDueOnOrBefore("garbage")
	assert.ErrorIs(t, err, ErrValidation)
}
