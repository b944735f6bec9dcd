package conn

import "github.com/taskpond/realtime/codec"

// SubKind tags the kind of server-side interest a subscription registers.
type SubKind string

const (
	// SubJob follows updates to a single job posting.
	SubJob SubKind = "job"
	// SubPayments follows payment-related updates for a single user.
	SubPayments SubKind = "payments"
)

// Subscription is a registered interest in updates for a specific entity.
// Comparable by value: two subscriptions with the same kind and key are the
// same interest.
type Subscription struct {
	Kind SubKind
	Key  string
}

// JobSubscription builds a subscription to a job's updates.
func JobSubscription(jobID string) Subscription {
	return Subscription{Kind: SubJob, Key: jobID}
}

// PaymentSubscription builds a subscription to a user's payment updates.
func PaymentSubscription(userID string) Subscription {
	return Subscription{Kind: SubPayments, Key: userID}
}

// Message builds the subscribe frame for the server.
func (s Subscription) Message() *codec.Message {
	switch s.Kind {
	case SubPayments:
		return codec.NewMessage(codec.TypeSubscribePayments).Set("userId", s.Key).(*codec.Message)
	default:
		return codec.NewMessage(codec.TypeSubscribeJob).Set("jobId", s.Key).(*codec.Message)
	}
}

// Cancel builds the cancellation variant: same payload, action flag flipped.
func (s Subscription) Cancel() *codec.Message {
	return s.Message().Set("action", codec.ActionUnsubscribe).(*codec.Message)
}
