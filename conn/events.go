package conn

// Canonical event names republished on the bus for consumer convenience.
// Raw inbound messages are additionally published under their own type tag.
const (
	// EventConnected fires after a successful connect-and-authenticate
	// handshake, queue drain and subscription replay.
	EventConnected = "connected"
	// EventDisconnected fires when automatic reconnection gives up.
	EventDisconnected = "disconnected"

	// EventJobUpdate carries the full job_updated envelope.
	EventJobUpdate = "job.update"
	// EventNewMessage carries only the nested message, envelope stripped.
	EventNewMessage = "message.new"
	// EventPaymentUpdate carries the full payment_updated envelope.
	EventPaymentUpdate = "payment.update"
	// EventEscrowReleased carries the full escrow_released envelope.
	EventEscrowReleased = "payment.escrow_released"
	// EventTransactionUpdate carries the full transaction_updated envelope.
	EventTransactionUpdate = "payment.transaction_update"
)
