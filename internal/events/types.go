package events

// Topic enumerates the high-level channels inside the execution core.
type Topic string

const (
	TopicPriceTick      Topic = "price_tick"
	TopicTradeSignal    Topic = "trade_signal"
	TopicOrderCreated   Topic = "order.created"
	TopicOrderSubmitted Topic = "order.submitted"
	TopicOrderRejected  Topic = "order.rejected"
	TopicOrderFilled    Topic = "order.filled"
	TopicOrderCanceled  Topic = "order.canceled"
	TopicOrderUpdate    Topic = "order.update"
)
