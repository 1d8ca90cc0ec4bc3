package events

// Topic constants for domain events emitted by the back office.
const (
	TopicQuoteSent            = "quote.sent"
	TopicQuoteConverted       = "quote.converted"
	TopicQuoteExpired         = "quote.expired"
	TopicBookingStatusChanged = "booking.status_changed"
)
