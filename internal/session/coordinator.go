package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/config"
	"github.com/classpulse/backend/internal/models"
)

// Coordinator owns the whole session state: the participant registry, the
// single active poll with its tally, the deadline scheduler, and the history
// log. Every inbound event mutates state as one indivisible step under mu and
// emits its notifications before the lock is released, so all participants
// observe lifecycle events in the same total order.
type Coordinator struct {
	mu        sync.Mutex
	pollCfg   config.PollConfig
	chatCfg   config.ChatConfig
	registry  *Registry
	history   *HistoryLog
	scheduler *Scheduler
	publisher Publisher
	logger    *zap.Logger

	active *models.PollSession
	tally  *Aggregator
}

// NewCoordinator wires an empty session around the given publisher.
func NewCoordinator(cfg *config.Config, pub Publisher, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		pollCfg:   cfg.Poll,
		chatCfg:   cfg.Chat,
		registry:  NewRegistry(),
		history:   NewHistoryLog(),
		publisher: pub,
		logger:    logger,
	}
	c.scheduler = NewScheduler(c.EndPoll)
	return c
}

// JoinTeacher registers connID as a teacher and sends the current poll, if
// one is live, so late joiners reconcile without waiting for a broadcast.
func (c *Coordinator) JoinTeacher(connID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.RegisterTeacher(connID, name); err != nil {
		return err
	}
	c.publisher.SendTo(connID, EventTeacherJoined, map[string]any{"success": true})
	if c.active != nil {
		c.publisher.SendTo(connID, EventCurrentPoll, c.active.Snapshot())
	}
	c.logger.Info("teacher joined", zap.String("conn_id", connID), zap.String("name", name))
	return nil
}

// JoinStudent registers connID as a student and sends the current poll, if
// one is live.
func (c *Coordinator) JoinStudent(connID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.RegisterStudent(connID, name); err != nil {
		return err
	}
	c.publisher.SendTo(connID, EventStudentJoined, map[string]any{"success": true})
	if c.active != nil {
		c.publisher.SendTo(connID, EventCurrentPoll, c.active.Snapshot())
	}
	c.logger.Info("student joined", zap.String("conn_id", connID), zap.String("name", name))
	return nil
}

// CreatePoll starts a new poll. Only one poll may be active at a time; the
// previous one must have completed. maxTime of 0 takes the configured
// default. Note the issuing connection's role is deliberately not checked;
// clients only expose the control to teachers.
func (c *Coordinator) CreatePoll(connID, question string, options []string, maxTime int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return fail(ErrConflict, "a poll is already active")
	}

	opts := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	if len(opts) < 2 {
		return fail(ErrValidation, "at least two non-empty options are required")
	}
	if maxTime == 0 {
		maxTime = c.pollCfg.DefaultSeconds
	}
	if maxTime < c.pollCfg.MinSeconds || maxTime > c.pollCfg.MaxSeconds {
		return fail(ErrValidation, fmt.Sprintf("maxTime must be between %d and %d seconds",
			c.pollCfg.MinSeconds, c.pollCfg.MaxSeconds))
	}

	now := time.Now()
	duration := time.Duration(maxTime) * time.Second
	poll := &models.PollSession{
		ID:        uuid.New(),
		Question:  question,
		Options:   opts,
		MaxTime:   maxTime,
		StartTime: now.UnixMilli(),
		EndTime:   now.Add(duration).UnixMilli(),
		Results:   make(map[string]int),
	}
	c.active = poll
	c.tally = NewAggregator()
	c.registry.ResetAnswers()
	c.scheduler.Arm(poll.ID, duration)
	c.publisher.Broadcast(EventNewPoll, poll.Snapshot())

	c.logger.Info("poll created",
		zap.String("poll_id", poll.ID.String()),
		zap.String("conn_id", connID),
		zap.Int("options", len(opts)),
		zap.Int("max_time_sec", maxTime))
	return nil
}

// SubmitAnswer records connID's single vote for the active poll and
// broadcasts the updated tally. The option value is accepted as-is, without
// checking membership in the declared option list. When the last registered
// student answers, the poll ends in the same step.
func (c *Coordinator) SubmitAnswer(connID, option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	student, ok := c.registry.Student(connID)
	if !ok {
		return fail(ErrNotFound, "student not found")
	}
	if c.active == nil {
		return fail(ErrNotFound, "no active poll")
	}
	if student.HasAnswered {
		return fail(ErrDuplicateAnswer, "you have already answered this poll")
	}

	c.tally.Record(option)
	student.HasAnswered = true
	c.active.Results = c.tally.Results()
	c.active.TotalVotes = c.tally.Total()

	c.publisher.Broadcast(EventPollResults, models.PollResults{
		PollID:     c.active.ID,
		Results:    c.tally.Results(),
		TotalVotes: c.tally.Total(),
	})

	if c.registry.AllAnswered() {
		c.endLocked(c.active.ID)
	}
	return nil
}

// EndPoll completes the poll identified by sessionID. It is idempotent: a
// stale deadline firing after a manual end, or after a newer poll replaced
// the session, is a no-op.
func (c *Coordinator) EndPoll(sessionID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked(sessionID)
}

// EndActive completes whatever poll is currently live, if any. Backs the
// manual end-poll command.
func (c *Coordinator) EndActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.endLocked(c.active.ID)
	}
}

// endLocked is the single completion path shared by the deadline fire, the
// manual end, the all-answered shortcut, and the teacher-disconnect rule.
// Callers must hold mu.
func (c *Coordinator) endLocked(sessionID uuid.UUID) {
	if c.active == nil || c.active.ID != sessionID {
		return // deadline guard: this session already ended
	}

	now := time.Now().UnixMilli()
	c.active.IsComplete = true
	c.active.EndTime = now
	c.active.Results = c.tally.Results()
	c.active.TotalVotes = c.tally.Total()

	rec := models.HistoryRecord{PollSession: c.active.Snapshot(), Timestamp: now}
	c.history.Append(rec)
	c.scheduler.Disarm()
	c.publisher.Broadcast(EventPollEnded, rec.PollSession)

	c.logger.Info("poll ended",
		zap.String("poll_id", sessionID.String()),
		zap.Int("total_votes", rec.TotalVotes))

	c.active = nil
	c.tally = nil
}

// Leave removes connID from the registry on disconnect. If the last teacher
// left while a poll is live, the poll is force-ended. Disconnects are not
// errors; unknown ids are ignored.
func (c *Coordinator) Leave(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	role, removed := c.registry.Remove(connID)
	if !removed {
		return
	}
	c.logger.Info("participant left", zap.String("conn_id", connID), zap.String("role", string(role)))
	if role == models.RoleTeacher && c.registry.TeacherCount() == 0 && c.active != nil {
		c.endLocked(c.active.ID)
	}
}

// Kick forcibly removes a student: the target is notified, dropped from the
// registry, announced to everyone, and its connection is terminated. A kicked
// student can no longer answer; its registry entry is gone.
func (c *Coordinator) Kick(targetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	student, ok := c.registry.Student(targetID)
	if !ok {
		return fail(ErrNotFound, "student not found")
	}
	name := student.Name

	c.publisher.SendTo(targetID, EventKicked, map[string]any{
		"message": "You have been kicked by the teacher",
	})
	c.registry.Remove(targetID)
	c.publisher.Broadcast(EventStudentKicked, map[string]any{
		"studentId":   targetID,
		"studentName": name,
	})
	c.publisher.Disconnect(targetID)

	c.logger.Info("student kicked", zap.String("conn_id", targetID), zap.String("name", name))
	return nil
}

// SendMessage relays a chat message from connID to everyone. Chat is
// independent of poll state and nothing is retained server-side.
func (c *Coordinator) SendMessage(connID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, role, ok := c.registry.Lookup(connID)
	if !ok {
		return fail(ErrNotFound, "sender not registered")
	}
	if c.chatCfg.MaxMessageLen > 0 && len(text) > c.chatCfg.MaxMessageLen {
		return fail(ErrValidation, fmt.Sprintf("message exceeds %d characters", c.chatCfg.MaxMessageLen))
	}

	c.publisher.Broadcast(EventNewMessage, models.ChatMessage{
		ID:         uuid.New(),
		Sender:     name,
		SenderID:   connID,
		SenderType: role,
		Message:    text,
		Timestamp:  time.Now().UnixMilli(),
	})
	return nil
}

// ActivePoll returns a snapshot of the live poll, if any.
func (c *Coordinator) ActivePoll() (models.PollSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return models.PollSession{}, false
	}
	return c.active.Snapshot(), true
}

// History returns all completed polls in chronological order.
func (c *Coordinator) History() []models.HistoryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.List()
}

// Students returns registered students in join order.
func (c *Coordinator) Students() []models.StudentInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Students()
}
