package events

// Message is one payload delivered by a Subscriber.
type Message struct {
	Subject string
	Data    []byte
}

// Subscriber receives messages from the event bus.
type Subscriber interface {
	// Subscribe delivers messages on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}
