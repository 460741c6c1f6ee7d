package monitoring

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/taskfolio/taskfolio-be/internal/models"
	"github.com/taskfolio/taskfolio-be/internal/services"
	"github.com/taskfolio/taskfolio-be/internal/websocket"
)

// alertCooldown suppresses repeat reminders for the same task.
const alertCooldown = 24 * time.Hour

// Reminder periodically flags tasks that are due or overdue and cleans up
// expired sessions. The sweep cadence comes from a cron expression.
type Reminder struct {
	taskSvc    services.TaskServiceProvider
	sessionSvc services.SessionServiceProvider
	eventSvc   services.EventServiceProvider
	hub        *websocket.Hub

	schedule cron.Schedule
	nextRun  time.Time
	ticker   *time.Ticker
	done     chan bool
	alerted  map[int64]time.Time
}

// NewReminder creates a reminder sweep. spec is a standard cron expression
// (descriptors like "@every 15m" are accepted).
func NewReminder(spec string, taskSvc services.TaskServiceProvider, sessionSvc services.SessionServiceProvider, eventSvc services.EventServiceProvider, hub *websocket.Hub) (*Reminder, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	return &Reminder{
		taskSvc:    taskSvc,
		sessionSvc: sessionSvc,
		eventSvc:   eventSvc,
		hub:        hub,
		schedule:   schedule,
		done:       make(chan bool),
		alerted:    make(map[int64]time.Time),
	}, nil
}

// Run starts the reminder's ticking loop.
func (rm *Reminder) Run() {
	log.Info().Msg("Starting background reminder sweep...")
	rm.ticker = time.NewTicker(1 * time.Minute)
	defer rm.ticker.Stop()

	// Run once immediately on start
	rm.sweep()
	rm.nextRun = rm.schedule.Next(time.Now())

	for {
		select {
		case <-rm.done:
			log.Info().Msg("Stopping background reminder sweep.")
			return
		case <-rm.ticker.C:
			if time.Now().After(rm.nextRun) {
				rm.sweep()
				rm.nextRun = rm.schedule.Next(time.Now())
			}
		}
	}
}

// Stop halts the reminder loop.
func (rm *Reminder) Stop() {
	rm.done <- true
}

// sweep flags due tasks and purges expired sessions.
func (rm *Reminder) sweep() {
	today := time.Now().Format(models.DueDateLayout)
	tasks, err := rm.taskSvc.ListDueOnOrBefore(today)
	if err != nil {
		log.Error().Err(err).Msg("Reminder: failed to query due tasks")
		return
	}

	seen := make(map[int64]bool, len(tasks))
	for _, task := range tasks {
		seen[task.ID] = true
		if last, ok := rm.alerted[task.ID]; ok && time.Since(last) < alertCooldown {
			continue
		}
		msg := fmt.Sprintf("Task '%s' is due (%s).", task.Name, task.DueDate)
		rm.eventSvc.CreateEvent("task.due", "warn", msg, &task.OwnerID)
		rm.hub.BroadcastToUser(task.OwnerID, websocket.NewTaskMessage("task_due", task))
		rm.alerted[task.ID] = time.Now()
	}

	// Drop cooldown entries for tasks that are gone (deleted, or pushed to a
	// future due date) so the map doesn't grow for the process lifetime.
	for id := range rm.alerted {
		if !seen[id] {
			delete(rm.alerted, id)
		}
	}

	purged, err := rm.sessionSvc.PurgeExpired()
	if err != nil {
		log.Error().Err(err).Msg("Reminder: failed to purge expired sessions")
		return
	}
	if purged > 0 {
		log.Info().Int64("sessions", purged).Msg("Purged expired sessions")
	}
}
