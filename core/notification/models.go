package notification

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
)

// Notification is an owned record addressed to one recipient.
type Notification struct {
	ID          string     `json:"id"`
	RecipientID string     `json:"recipient_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"read_at,omitempty"` // UTC
	CreatedAt   time.Time  `json:"created_at"`        // UTC
}

type NewNotification struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid4"`
	Title       string `json:"title" validate:"required"`
	Message     string `json:"message" validate:"required"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Message = core.CleanString(nn.Message)
	return validate.Struct(nn)
}

type QueryFilter struct {
	UnreadOnly bool `query:"unread"`
}
