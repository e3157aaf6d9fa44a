package session

import (
	"strings"

	"github.com/classpulse/backend/internal/models"
)

// Teacher is a connected teacher participant.
type Teacher struct {
	ID   string
	Name string
}

// Student is a connected student participant. HasAnswered is reset when a
// new poll starts and flips once the student's single answer is accepted.
type Student struct {
	ID          string
	Name        string
	HasAnswered bool
}

// Registry tracks connected participants keyed by connection id, with
// per-role insertion order. It is not safe for concurrent use; the
// coordinator serializes access under its own lock.
type Registry struct {
	teachers     map[string]*Teacher
	students     map[string]*Student
	teacherOrder []string
	studentOrder []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		teachers: make(map[string]*Teacher),
		students: make(map[string]*Student),
	}
}

// RegisterTeacher adds or replaces the participant for connID as a teacher.
func (r *Registry) RegisterTeacher(connID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fail(ErrValidation, "name is required")
	}
	r.evict(connID)
	r.teachers[connID] = &Teacher{ID: connID, Name: name}
	r.teacherOrder = append(r.teacherOrder, connID)
	return nil
}

// RegisterStudent adds or replaces the participant for connID as a student.
func (r *Registry) RegisterStudent(connID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fail(ErrValidation, "name is required")
	}
	r.evict(connID)
	r.students[connID] = &Student{ID: connID, Name: name}
	r.studentOrder = append(r.studentOrder, connID)
	return nil
}

// Remove deletes the participant for connID, reporting its role. Removing an
// unknown id is a no-op.
func (r *Registry) Remove(connID string) (models.Role, bool) {
	if _, ok := r.teachers[connID]; ok {
		r.evict(connID)
		return models.RoleTeacher, true
	}
	if _, ok := r.students[connID]; ok {
		r.evict(connID)
		return models.RoleStudent, true
	}
	return "", false
}

// Student returns the student registered for connID, if any.
func (r *Registry) Student(connID string) (*Student, bool) {
	s, ok := r.students[connID]
	return s, ok
}

// Lookup resolves any registered participant to its display name and role.
func (r *Registry) Lookup(connID string) (string, models.Role, bool) {
	if s, ok := r.students[connID]; ok {
		return s.Name, models.RoleStudent, true
	}
	if t, ok := r.teachers[connID]; ok {
		return t.Name, models.RoleTeacher, true
	}
	return "", "", false
}

// Students returns a snapshot of registered students in insertion order.
func (r *Registry) Students() []models.StudentInfo {
	out := make([]models.StudentInfo, 0, len(r.students))
	for _, id := range r.studentOrder {
		s := r.students[id]
		out = append(out, models.StudentInfo{ID: s.ID, Name: s.Name, HasAnswered: s.HasAnswered})
	}
	return out
}

// Teachers returns a snapshot of registered teachers in insertion order.
func (r *Registry) Teachers() []Teacher {
	out := make([]Teacher, 0, len(r.teachers))
	for _, id := range r.teacherOrder {
		out = append(out, *r.teachers[id])
	}
	return out
}

// TeacherCount returns the number of registered teachers.
func (r *Registry) TeacherCount() int {
	return len(r.teachers)
}

// StudentCount returns the number of registered students.
func (r *Registry) StudentCount() int {
	return len(r.students)
}

// ResetAnswers clears every student's HasAnswered flag for a new poll.
func (r *Registry) ResetAnswers() {
	for _, s := range r.students {
		s.HasAnswered = false
	}
}

// AllAnswered reports whether every registered student has answered the
// current poll. False when no students are registered.
func (r *Registry) AllAnswered() bool {
	if len(r.students) == 0 {
		return false
	}
	for _, s := range r.students {
		if !s.HasAnswered {
			return false
		}
	}
	return true
}

func (r *Registry) evict(connID string) {
	if _, ok := r.teachers[connID]; ok {
		delete(r.teachers, connID)
		r.teacherOrder = dropID(r.teacherOrder, connID)
	}
	if _, ok := r.students[connID]; ok {
		delete(r.students, connID)
		r.studentOrder = dropID(r.studentOrder, connID)
	}
}

func dropID(order []string, connID string) []string {
	for i, id := range order {
		if id == connID {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
