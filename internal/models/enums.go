package models

// ExperienceLevel is ordered: entry < intermediate < expert.
type ExperienceLevel string

const (
	ExperienceEntry        ExperienceLevel = "entry"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceExpert       ExperienceLevel = "expert"
)

var ExperienceLevels = []ExperienceLevel{ExperienceEntry, ExperienceIntermediate, ExperienceExpert}

// Rank is 0 for unknown values.
func (e ExperienceLevel) Rank() int {
	switch e {
	case ExperienceEntry:
		return 1
	case ExperienceIntermediate:
		return 2
	case ExperienceExpert:
		return 3
	}
	return 0
}

func (e ExperienceLevel) Valid() bool { return e.Rank() > 0 }

// Satisfies reports whether a holder of level e meets the requirement.
func (e ExperienceLevel) Satisfies(required ExperienceLevel) bool {
	return e.Rank() >= required.Rank()
}

// Urgency is ordered: normal < high < emergency.
type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

var Urgencies = []Urgency{UrgencyNormal, UrgencyHigh, UrgencyEmergency}

func (u Urgency) Rank() int {
	switch u {
	case UrgencyNormal:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyEmergency:
		return 3
	}
	return 0
}

func (u Urgency) Valid() bool { return u.Rank() > 0 }

// EnumValues returns the string form of an enum list, for schemas.
func EnumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
