package enums

// OutboxEventType names the payment lifecycle events emitted for the notifier.
type OutboxEventType string

const (
	OutboxEventPaymentCreated OutboxEventType = "payment.created"
	OutboxEventPaymentUpdated OutboxEventType = "payment.updated"
	OutboxEventPaymentDeleted OutboxEventType = "payment.deleted"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregatePayment OutboxAggregateType = "payment"
)
