// Package notify abstracts push-notification delivery. The dispatcher
// only ever sees the Notifier interface; delivery failures are the
// caller's to log and are never retried.
package notify

type Notifier interface {
	Deliver(token, title, body string) error
}
