package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpulse/backend/config"
	"github.com/classpulse/backend/internal/models"
)

type sentEvent struct {
	name    string
	to      string // empty for broadcasts
	payload any
}

// fakePublisher captures notifications; safe for the deadline goroutine.
type fakePublisher struct {
	mu           sync.Mutex
	events       []sentEvent
	disconnected []string
}

func (p *fakePublisher) Broadcast(event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sentEvent{name: event, payload: payload})
}

func (p *fakePublisher) SendTo(connID string, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sentEvent{name: event, to: connID, payload: payload})
}

func (p *fakePublisher) Disconnect(connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = append(p.disconnected, connID)
}

func (p *fakePublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.name == event {
			n++
		}
	}
	return n
}

func (p *fakePublisher) last(event string) (sentEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].name == event {
			return p.events[i], true
		}
	}
	return sentEvent{}, false
}

func testConfig() *config.Config {
	return &config.Config{
		Poll: config.PollConfig{MinSeconds: 1, MaxSeconds: 300, DefaultSeconds: 60},
		Chat: config.ChatConfig{MaxMessageLen: 100},
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	return NewCoordinator(testConfig(), pub, zap.NewNop()), pub
}

func activeID(t *testing.T, c *Coordinator) uuid.UUID {
	t.Helper()
	poll, ok := c.ActivePoll()
	require.True(t, ok, "expected an active poll")
	return poll.ID
}

func TestCreatePollValidation(t *testing.T) {
	c, _ := newTestCoordinator(t)

	err := c.CreatePoll("t1", "Q?", []string{"Yes"}, 30)
	assert.ErrorIs(t, err, ErrValidation)

	err = c.CreatePoll("t1", "Q?", []string{"Yes", "  ", ""}, 30)
	assert.ErrorIs(t, err, ErrValidation, "blank options do not count")

	err = c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 500)
	assert.ErrorIs(t, err, ErrValidation, "maxTime above bound")

	_, ok := c.ActivePoll()
	assert.False(t, ok)
}

func TestCreatePollRejectedWhileActive(t *testing.T) {
	c, pub := newTestCoordinator(t)

	require.NoError(t, c.CreatePoll("t1", "First?", []string{"Yes", "No"}, 60))
	err := c.CreatePoll("t1", "Second?", []string{"A", "B"}, 60)
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, 1, pub.count(EventNewPoll), "only one poll may be active system-wide")
}

func TestCreatePollDefaultsAndBroadcast(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.JoinStudent("s1", "Alice"))

	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 0))

	ev, ok := pub.last(EventNewPoll)
	require.True(t, ok)
	poll := ev.payload.(models.PollSession)
	assert.Equal(t, 60, poll.MaxTime, "zero maxTime takes the configured default")
	assert.Equal(t, []string{"Yes", "No"}, poll.Options)
	assert.False(t, poll.IsComplete)
	assert.Zero(t, poll.TotalVotes)
	assert.Equal(t, poll.StartTime+60_000, poll.EndTime)
}

func TestSubmitAnswerTallyAndErrors(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.JoinTeacher("t1", "Teach"))
	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.JoinStudent("s2", "Bob"))

	assert.ErrorIs(t, c.SubmitAnswer("s1", "Yes"), ErrNotFound, "no active poll yet")

	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 60))

	assert.ErrorIs(t, c.SubmitAnswer("ghost", "Yes"), ErrNotFound)
	assert.ErrorIs(t, c.SubmitAnswer("t1", "Yes"), ErrNotFound, "teachers are not registered students")

	require.NoError(t, c.SubmitAnswer("s1", "Yes"))
	ev, ok := pub.last(EventPollResults)
	require.True(t, ok)
	results := ev.payload.(models.PollResults)
	assert.Equal(t, map[string]int{"Yes": 1}, results.Results)
	assert.Equal(t, 1, results.TotalVotes)

	assert.ErrorIs(t, c.SubmitAnswer("s1", "No"), ErrDuplicateAnswer)
	assert.ErrorIs(t, c.SubmitAnswer("s1", "Yes"), ErrDuplicateAnswer)

	poll, ok := c.ActivePoll()
	require.True(t, ok)
	sum := 0
	for _, n := range poll.Results {
		sum += n
	}
	assert.Equal(t, poll.TotalVotes, sum)
}

func TestSubmitAnswerAcceptsUndeclaredOption(t *testing.T) {
	c, _ := newTestCoordinator(t)
	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.JoinStudent("s2", "Bob"))
	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 60))

	// Option membership is deliberately not validated.
	require.NoError(t, c.SubmitAnswer("s1", "Banana"))

	poll, ok := c.ActivePoll()
	require.True(t, ok)
	assert.Equal(t, 1, poll.Results["Banana"])
}

func TestAutoEndWhenAllStudentsAnswered(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.JoinStudent("s2", "Bob"))
	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 60))

	require.NoError(t, c.SubmitAnswer("s1", "Yes"))
	assert.Zero(t, pub.count(EventPollEnded), "one student still pending")

	require.NoError(t, c.SubmitAnswer("s2", "No"))
	assert.Equal(t, 1, pub.count(EventPollEnded), "auto-ends before the deadline")

	_, ok := c.ActivePoll()
	assert.False(t, ok)

	history := c.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].IsComplete)
	assert.Equal(t, 2, history[0].TotalVotes)
	assert.Equal(t, map[string]int{"Yes": 1, "No": 1}, history[0].Results)
}

func TestEndPollIdempotent(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.JoinStudent("s2", "Bob"))
	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 60))
	id := activeID(t, c)

	require.NoError(t, c.SubmitAnswer("s1", "Yes"))
	c.EndActive()

	require.Len(t, c.History(), 1)
	assert.Equal(t, 1, c.History()[0].TotalVotes)

	// A stale deadline firing for the same id after the manual end is a no-op.
	c.EndPoll(id)
	c.EndPoll(id)
	c.EndActive()

	assert.Equal(t, 1, pub.count(EventPollEnded), "exactly one poll-ended broadcast")
	assert.Len(t, c.History(), 1, "exactly one history append")
}

func TestStaleDeadlineDoesNotEndNewerPoll(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.CreatePoll("t1", "First?", []string{"Yes", "No"}, 60))
	staleID := activeID(t, c)
	c.EndActive()

	require.NoError(t, c.CreatePoll("t1", "Second?", []string{"A", "B"}, 60))

	c.EndPoll(staleID)

	poll, ok := c.ActivePoll()
	require.True(t, ok, "newer poll must survive the stale fire")
	assert.Equal(t, "Second?", poll.Question)
	assert.Equal(t, 1, pub.count(EventPollEnded))
}

func TestDeadlineEndsUnansweredPoll(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 1))

	require.Eventually(t, func() bool { return pub.count(EventPollEnded) == 1 },
		3*time.Second, 20*time.Millisecond)

	ev, _ := pub.last(EventPollEnded)
	poll := ev.payload.(models.PollSession)
	assert.Zero(t, poll.TotalVotes)
	assert.True(t, poll.IsComplete)

	history := c.History()
	require.Len(t, history, 1)
	assert.Zero(t, history[0].TotalVotes)
}

func TestLastTeacherDisconnectForcesEnd(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.JoinTeacher("t1", "Teach"))
	require.NoError(t, c.JoinTeacher("t2", "Coach"))
	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 60))

	c.Leave("s1")
	assert.Zero(t, pub.count(EventPollEnded), "student leaving does not end the poll")

	c.Leave("t1")
	assert.Zero(t, pub.count(EventPollEnded), "one teacher remains")

	c.Leave("t2")
	assert.Equal(t, 1, pub.count(EventPollEnded), "sole teacher left")
	require.Len(t, c.History(), 1)

	c.Leave("t2") // repeated disconnect is a no-op
	assert.Equal(t, 1, pub.count(EventPollEnded))
}

func TestKickRemovesStudent(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.JoinStudent("s2", "Bob"))
	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 60))

	require.NoError(t, c.Kick("s1"))

	ev, ok := pub.last(EventKicked)
	require.True(t, ok)
	assert.Equal(t, "s1", ev.to)

	ev, ok = pub.last(EventStudentKicked)
	require.True(t, ok)
	payload := ev.payload.(map[string]any)
	assert.Equal(t, "s1", payload["studentId"])
	assert.Equal(t, "Alice", payload["studentName"])

	assert.Equal(t, []string{"s1"}, pub.disconnected)
	assert.ErrorIs(t, c.SubmitAnswer("s1", "Yes"), ErrNotFound, "kicked student cannot answer")
	assert.Len(t, c.Students(), 1)

	assert.ErrorIs(t, c.Kick("s1"), ErrNotFound, "already gone")
	assert.ErrorIs(t, c.Kick("nobody"), ErrNotFound)
}

func TestSendMessage(t *testing.T) {
	c, pub := newTestCoordinator(t)

	assert.ErrorIs(t, c.SendMessage("ghost", "hi"), ErrNotFound)

	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.SendMessage("s1", "hello class"))

	ev, ok := pub.last(EventNewMessage)
	require.True(t, ok)
	msg := ev.payload.(models.ChatMessage)
	assert.Equal(t, "Alice", msg.Sender)
	assert.Equal(t, "s1", msg.SenderID)
	assert.Equal(t, models.RoleStudent, msg.SenderType)
	assert.Equal(t, "hello class", msg.Message)
	assert.NotZero(t, msg.Timestamp)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	assert.ErrorIs(t, c.SendMessage("s1", string(long)), ErrValidation)
}

func TestChatIndependentOfPollState(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.JoinTeacher("t1", "Teach"))

	require.NoError(t, c.SendMessage("t1", "before poll"))
	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 60))
	require.NoError(t, c.SendMessage("t1", "during poll"))
	c.EndActive()
	require.NoError(t, c.SendMessage("t1", "after poll"))

	assert.Equal(t, 3, pub.count(EventNewMessage))
}

func TestLateJoinerReceivesCurrentPoll(t *testing.T) {
	c, pub := newTestCoordinator(t)
	require.NoError(t, c.JoinStudent("s0", "Early"))
	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 60))

	require.NoError(t, c.JoinStudent("s1", "Late"))
	ev, ok := pub.last(EventCurrentPoll)
	require.True(t, ok)
	assert.Equal(t, "s1", ev.to)
	assert.Equal(t, "Q?", ev.payload.(models.PollSession).Question)

	before := pub.count(EventCurrentPoll)
	c.EndActive()
	require.NoError(t, c.JoinStudent("s2", "Idle"))
	assert.Equal(t, before, pub.count(EventCurrentPoll), "no current poll when idle")
}

func TestNewPollResetsAnswers(t *testing.T) {
	c, _ := newTestCoordinator(t)
	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.JoinStudent("s2", "Bob"))

	require.NoError(t, c.CreatePoll("t1", "First?", []string{"Yes", "No"}, 60))
	require.NoError(t, c.SubmitAnswer("s1", "Yes"))
	c.EndActive()

	require.NoError(t, c.CreatePoll("t1", "Second?", []string{"A", "B"}, 60))

	for _, s := range c.Students() {
		assert.False(t, s.HasAnswered, "hasAnswered resets per poll")
	}
	require.NoError(t, c.SubmitAnswer("s1", "A"), "may answer again in the new poll")
}

func TestQuerySnapshots(t *testing.T) {
	c, _ := newTestCoordinator(t)
	require.NoError(t, c.JoinStudent("s1", "Alice"))
	require.NoError(t, c.JoinStudent("s2", "Bob"))

	_, ok := c.ActivePoll()
	assert.False(t, ok)
	assert.Empty(t, c.History())

	require.NoError(t, c.CreatePoll("t1", "Q?", []string{"Yes", "No"}, 60))
	require.NoError(t, c.SubmitAnswer("s1", "Yes"))

	students := c.Students()
	require.Len(t, students, 2)
	assert.Equal(t, "Alice", students[0].Name)
	assert.True(t, students[0].HasAnswered)
	assert.False(t, students[1].HasAnswered)

	poll, ok := c.ActivePoll()
	require.True(t, ok)
	poll.Results["Yes"] = 99 // mutating the snapshot must not leak back
	fresh, _ := c.ActivePoll()
	assert.Equal(t, 1, fresh.Results["Yes"])
}
