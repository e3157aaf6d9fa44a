package models

// Role distinguishes the two kinds of connected participants.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// StudentInfo is the read-model row returned by the students query surface.
type StudentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HasAnswered bool   `json:"hasAnswered"`
}
