package updates

import (
	"context"
	"time"
)

// ChatMessage is the message resource shape returned by the marketplace
// messaging API.
type ChatMessage struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ISender persists a new chat message through the marketplace API. The HTTP
// side lives with the host application; this layer only consumes the result.
type ISender interface {
	Send(ctx context.Context, jobID, recipientID, content string) (*ChatMessage, error)
}

// ILister fetches the conversation for a (job, recipient) pair, ordered with
// the newest message last.
type ILister interface {
	List(ctx context.Context, jobID, recipientID string) ([]ChatMessage, error)
}
