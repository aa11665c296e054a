package models

import "time"

// SystemSenderID authors messages generated by the platform.
const SystemSenderID = "system"

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

type Conversation struct {
	ID             string    `json:"id"`
	JobID          string    `json:"jobId"`
	ApplicationID  string    `json:"applicationId"`
	PosterID       string    `json:"posterId"`
	ProfessionalID string    `json:"professionalId"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.PosterID || userID == c.ProfessionalID
}

// Counterpart returns the participant who is not userID.
func (c *Conversation) Counterpart(userID string) string {
	if userID == c.PosterID {
		return c.ProfessionalID
	}
	return c.PosterID
}

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type Milestone string

const (
	MilestoneUpdate     Milestone = "update"
	MilestoneCompletion Milestone = "completion"
)

type ProgressUpdate struct {
	ID             string    `json:"id"`
	JobID          string    `json:"jobId"`
	ProfessionalID string    `json:"professionalId"`
	Content        string    `json:"content"`
	Milestone      Milestone `json:"milestone"`
	CreatedAt      time.Time `json:"createdAt"`
}
