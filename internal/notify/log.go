package notify

import "log"

// LogNotifier writes notifications to the server log instead of a
// push transport. Useful for development and tests.
type LogNotifier struct {
	log *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) Deliver(token, title, body string) error {
	n.log.Printf("notify: to=%q title=%q body=%q", token, title, body)
	return nil
}
