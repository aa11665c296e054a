package models

import "time"

type Role string

const (
	RoleGolfCourse   Role = "golf_course"
	RoleProfessional Role = "professional"
)

type Profile struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	DisplayName     string          `json:"displayName"`
	Phone           string          `json:"phone,omitempty"`
	Role            Role            `json:"role"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel,omitempty"`
	HourlyRate      *float64        `json:"hourlyRate,omitempty"`
	Rating          float64         `json:"rating"`
	CompletedJobs   int             `json:"completedJobs"`
	Specializations []string        `json:"specializations,omitempty"`
	Certifications  []string        `json:"certifications,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Actor is the resolved caller of an engine operation.
type Actor struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
}

func (a Actor) IsProfessional() bool { return a.Role == RoleProfessional }
func (a Actor) IsGolfCourse() bool { return a.Role == RoleGolfCourse }
