package codec

import (
	"encoding/json"
	"errors"
)

// Ensure Message implements IMessage.
var _ IMessage = (*Message)(nil)

// ----------------------------------------------------
// Wire message kinds
// ----------------------------------------------------

// Client -> server message types.
const (
	TypeAuth              = "auth"
	TypeSubscribeJob      = "subscribe_job"
	TypeSubscribePayments = "subscribe_payments"
	TypeNewMessage        = "new_message"
)

// Server -> client message types handled beyond raw republication.
const (
	TypeJobUpdated         = "job_updated"
	TypePaymentUpdated     = "payment_updated"
	TypeEscrowReleased     = "escrow_released"
	TypeTransactionUpdated = "transaction_updated"
)

// ActionUnsubscribe flips a subscribe frame into its cancellation variant.
const ActionUnsubscribe = "unsubscribe"

var ErrNoType = errors.New("codec: message has no type tag")

// ----------------------------------------------------
// Message
// ----------------------------------------------------

// IMessage defines the contract for live-channel messages.
type IMessage interface {
	GetType() string
	Get(key string) (any, bool)
	Set(key string, val any) IMessage
	GetString(key string) string
	Fields() map[string]any
	Encode() ([]byte, error)
}

// Message is the JSON envelope exchanged over the live channel. The type tag
// sits at the top level next to the payload fields.
type Message struct {
	Type string
	Body map[string]any
}

// NewMessage creates a new empty message of a given type.
func NewMessage(t string) *Message {
	return &Message{
		Type: t,
		Body: make(map[string]any),
	}
}

// NewAuth creates the authentication frame carrying the user identity.
func NewAuth(userID string) *Message {
	return NewMessage(TypeAuth).Set("userId", userID).(*Message)
}

// NewChatMessage wraps an already persisted chat message for real-time fan-out.
func NewChatMessage(msg any) *Message {
	return NewMessage(TypeNewMessage).Set("message", msg).(*Message)
}

func (m *Message) GetType() string { return m.Type }

// Fields returns the payload fields, excluding the type tag.
func (m *Message) Fields() map[string]any {
	if m.Body == nil {
		m.Body = make(map[string]any)
	}
	return m.Body
}

// Set stores a payload field and returns the message for chaining.
func (m *Message) Set(key string, val any) IMessage {
	m.Fields()[key] = val
	return m
}

// Get returns a payload field and whether it was present.
func (m *Message) Get(key string) (any, bool) {
	v, ok := m.Fields()[key]
	return v, ok
}

// GetString returns the string value of a payload field.
func (m *Message) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := toString(v)
	return s
}

// ----------------------------------------------------
// Encoding
// ----------------------------------------------------

// MarshalJSON flattens the type tag into the payload object.
func (m *Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Body)+1)
	for k, v := range m.Body {
		out[k] = v
	}
	out["type"] = m.Type
	return json.Marshal(out)
}

// UnmarshalJSON splits the type tag off the payload object.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, ok := raw["type"].(string)
	if !ok || t == "" {
		return ErrNoType
	}
	delete(raw, "type")
	m.Type = t
	m.Body = raw
	return nil
}

// Encode serializes the message for transmission.
func (m *Message) Encode() ([]byte, error) {
	return Marshal(m)
}

// Decode parses a raw inbound frame into a message.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
