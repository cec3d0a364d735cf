package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Diagram is a stored UML class diagram. Content is the raw diagram JSON.
type Diagram struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (d *Diagram) Prepare() {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
}
