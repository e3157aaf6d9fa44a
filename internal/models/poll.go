package models

import "github.com/google/uuid"

// PollSession is one live multiple-choice poll. Field names follow the wire
// protocol the dashboard clients consume, so timestamps are unix milliseconds.
type PollSession struct {
	ID         uuid.UUID      `json:"id"`
	Question   string         `json:"question"`
	Options    []string       `json:"options"`
	MaxTime    int            `json:"maxTime"` // seconds
	StartTime  int64          `json:"startTime"`
	EndTime    int64          `json:"endTime"` // deadline while live, actual end once complete
	IsComplete bool           `json:"isComplete"`
	Results    map[string]int `json:"results"`
	TotalVotes int            `json:"totalVotes"`
}

// Snapshot returns a deep copy safe to hand outside the coordinator lock.
func (p *PollSession) Snapshot() PollSession {
	cp := *p
	cp.Options = append([]string(nil), p.Options...)
	cp.Results = make(map[string]int, len(p.Results))
	for opt, n := range p.Results {
		cp.Results[opt] = n
	}
	return cp
}

// HistoryRecord is an immutable snapshot of a completed poll.
type HistoryRecord struct {
	PollSession
	Timestamp int64 `json:"timestamp"` // completion time, unix milliseconds
}

// PollResults is the tally broadcast sent after each accepted answer.
type PollResults struct {
	PollID     uuid.UUID      `json:"pollId"`
	Results    map[string]int `json:"results"`
	TotalVotes int            `json:"totalVotes"`
}
