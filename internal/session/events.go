package session

// Event names on the outbound side of the WebSocket channel.
const (
	EventTeacherJoined = "teacher-joined"
	EventStudentJoined = "student-joined"
	EventCurrentPoll   = "current-poll"
	EventNewPoll       = "new-poll"
	EventPollResults   = "poll-results"
	EventPollEnded     = "poll-ended"
	EventKicked        = "kicked"
	EventStudentKicked = "student-kicked"
	EventNewMessage    = "new-message"
)

// Publisher delivers coordinator notifications to connected participants.
// Implemented by the realtime hub; injected so the core session logic is
// testable without a live transport.
type Publisher interface {
	// Broadcast fans an event out to every connected participant.
	Broadcast(event string, payload any)
	// SendTo delivers an event to a single connection; unknown ids are ignored.
	SendTo(connID string, event string, payload any)
	// Disconnect forcibly terminates a connection (kick).
	Disconnect(connID string)
}
