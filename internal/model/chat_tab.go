package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatTab is one chat session owned by a workspace user. Messages attach
// through the chat_tab_messages association table inside the same schema.
type ChatTab struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User     User          `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Messages []ChatMessage `json:"messages,omitempty" gorm:"many2many:chat_tab_messages"`
}

func (ChatTab) TableName() string {
	return "chat_tabs"
}

func (t *ChatTab) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
