package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatMessage is one question/answer exchange with the generation collaborator
type ChatMessage struct {
	ID       string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Question string `json:"question" gorm:"type:text;not null"`
	Answer   string `json:"answer" gorm:"type:text"`
	Citation string `json:"citation,omitempty" gorm:"type:jsonb"`

	LatencyMS       int `json:"latency_ms"`
	TokenPrompt     int `json:"token_prompt"`
	TokenCompletion int `json:"token_completion"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
