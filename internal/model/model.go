package model

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type User struct {
	ID              string       `bson:"_id" json:"id"`
	Name            string       `bson:"name" json:"name"`
	Email           string       `bson:"email" json:"email"`
	PasswordHash    string       `bson:"passwordHash" json:"-"`
	Grade           *string      `bson:"grade,omitempty" json:"grade,omitempty"`
	Gender          *string      `bson:"gender,omitempty" json:"gender,omitempty"`
	EnrolledCourses []Enrollment `bson:"enrolledCourses" json:"enrolledCourses"`
	CreatedAt       time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// Enrollment is the per-course progress record embedded in a user document.
type Enrollment struct {
	Course           string    `bson:"course" json:"course"`
	Completed        int       `bson:"completed" json:"completed"`
	CompletedModules []int     `bson:"completedModules" json:"completedModules"`
	CurrentModule    int       `bson:"currentModule" json:"currentModule"`
	TimeSpent        int       `bson:"timeSpent" json:"timeSpent"`
	LastAccessed     time.Time `bson:"lastAccessed" json:"lastAccessed"`
}

// Clone returns a copy of the user whose enrollment list and module slices
// share no memory with the receiver.
func (u User) Clone() User {
	out := u
	if u.EnrolledCourses != nil {
		out.EnrolledCourses = make([]Enrollment, len(u.EnrolledCourses))
		for i, enrollment := range u.EnrolledCourses {
			out.EnrolledCourses[i] = enrollment.Clone()
		}
	}
	if u.Grade != nil {
		grade := *u.Grade
		out.Grade = &grade
	}
	if u.Gender != nil {
		gender := *u.Gender
		out.Gender = &gender
	}
	return out
}

func (e Enrollment) Clone() Enrollment {
	out := e
	if e.CompletedModules != nil {
		out.CompletedModules = make([]int, len(e.CompletedModules))
		copy(out.CompletedModules, e.CompletedModules)
	}
	return out
}
