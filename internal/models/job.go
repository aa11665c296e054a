package models

import "time"

type JobStatus string

const (
	JobStatusOpen       JobStatus = "open"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// jobTransitions is the complete job status graph.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusOpen:       {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress: {JobStatusCompleted, JobStatusCancelled},
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusOpen, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// CanTransitionJob reports whether from -> to is an edge of the job graph.
func CanTransitionJob(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type JobCategory string

const (
	CategoryGreensMaintenance  JobCategory = "greens_maintenance"
	CategoryFairwayMaintenance JobCategory = "fairway_maintenance"
	CategoryIrrigation         JobCategory = "irrigation"
	CategoryEquipmentRepair    JobCategory = "equipment_repair"
	CategoryLandscaping        JobCategory = "landscaping"
	CategoryTreeCare           JobCategory = "tree_care"
	CategoryBunkerMaintenance  JobCategory = "bunker_maintenance"
	CategoryGeneralLabor       JobCategory = "general_labor"
)

var JobCategories = []JobCategory{
	CategoryGreensMaintenance,
	CategoryFairwayMaintenance,
	CategoryIrrigation,
	CategoryEquipmentRepair,
	CategoryLandscaping,
	CategoryTreeCare,
	CategoryBunkerMaintenance,
	CategoryGeneralLabor,
}

// Certifications a job may require.
var Certifications = []string{
	"pesticide_applicator",
	"irrigation_technician",
	"turfgrass_management",
	"equipment_operator",
	"certified_arborist",
	"first_aid",
}

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type Job struct {
	ID                     string          `json:"id"`
	PosterID               string          `json:"posterId"`
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Category               JobCategory     `json:"category"`
	Location               Location        `json:"location"`
	StartAt                time.Time       `json:"startAt"`
	EndAt                  time.Time       `json:"endAt"`
	HourlyRate             float64         `json:"hourlyRate"`
	RequiredCertifications []string        `json:"requiredCertifications"`
	RequiredExperience     ExperienceLevel `json:"requiredExperience"`
	Urgency                Urgency         `json:"urgency"`
	Status                 JobStatus       `json:"status"`
	CreatedAt              time.Time       `json:"createdAt"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

// JobDraft is the caller-supplied content of a new job.
type JobDraft struct {
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Category               JobCategory     `json:"category"`
	Location               Location        `json:"location"`
	StartAt                time.Time       `json:"startAt"`
	EndAt                  time.Time       `json:"endAt"`
	HourlyRate             float64         `json:"hourlyRate"`
	RequiredCertifications []string        `json:"requiredCertifications,omitempty"`
	RequiredExperience     ExperienceLevel `json:"requiredExperience"`
	Urgency                Urgency         `json:"urgency"`
}

// JobPatch carries only the fields being changed.
type JobPatch struct {
	Title                  *string          `json:"title,omitempty"`
	Description            *string          `json:"description,omitempty"`
	Category               *JobCategory     `json:"category,omitempty"`
	Location               *Location        `json:"location,omitempty"`
	StartAt                *time.Time       `json:"startAt,omitempty"`
	EndAt                  *time.Time       `json:"endAt,omitempty"`
	HourlyRate             *float64         `json:"hourlyRate,omitempty"`
	RequiredCertifications []string         `json:"requiredCertifications,omitempty"`
	RequiredExperience     *ExperienceLevel `json:"requiredExperience,omitempty"`
	Urgency                *Urgency         `json:"urgency,omitempty"`
}

// Apply returns a copy of the job's draft with the patch applied.
func (p JobPatch) Apply(j *Job) JobDraft {
	d := j.Draft()
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Location != nil {
		d.Location = *p.Location
	}
	if p.StartAt != nil {
		d.StartAt = *p.StartAt
	}
	if p.EndAt != nil {
		d.EndAt = *p.EndAt
	}
	if p.HourlyRate != nil {
		d.HourlyRate = *p.HourlyRate
	}
	if p.RequiredCertifications != nil {
		d.RequiredCertifications = p.RequiredCertifications
	}
	if p.RequiredExperience != nil {
		d.RequiredExperience = *p.RequiredExperience
	}
	if p.Urgency != nil {
		d.Urgency = *p.Urgency
	}
	return d
}

func (j *Job) Draft() JobDraft {
	return JobDraft{
		Title:                  j.Title,
		Description:            j.Description,
		Category:               j.Category,
		Location:               j.Location,
		StartAt:                j.StartAt,
		EndAt:                  j.EndAt,
		HourlyRate:             j.HourlyRate,
		RequiredCertifications: j.RequiredCertifications,
		RequiredExperience:     j.RequiredExperience,
		Urgency:                j.Urgency,
	}
}

// ApplyDraft overwrites the job's content fields.
func (j *Job) ApplyDraft(d JobDraft) {
	j.Title = d.Title
	j.Description = d.Description
	j.Category = d.Category
	j.Location = d.Location
	j.StartAt = d.StartAt
	j.EndAt = d.EndAt
	j.HourlyRate = d.HourlyRate
	j.RequiredCertifications = d.RequiredCertifications
	j.RequiredExperience = d.RequiredExperience
	j.Urgency = d.Urgency
}
