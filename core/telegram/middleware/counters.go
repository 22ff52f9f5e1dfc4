package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const (
	messagesKey = "messages"
	keyboardKey = "kb"
)

// replyCounter wraps tele.Context and records, per update, how many replies
// went out and whether any of them carried a keyboard.
type replyCounter struct{ tele.Context }

func (r replyCounter) record(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	n, _ := r.Get(messagesKey).(int)
	r.Set(messagesKey, n+1)
	if carriesMarkup(opts) {
		r.Set(keyboardKey, true)
	}
	return nil
}

func carriesMarkup(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (r replyCounter) Send(what interface{}, opts ...interface{}) error {
	return r.record(r.Context.Send(what, opts...), opts)
}

func (r replyCounter) Reply(what interface{}, opts ...interface{}) error {
	return r.record(r.Context.Reply(what, opts...), opts)
}

func (r replyCounter) Edit(what interface{}, opts ...interface{}) error {
	return r.record(r.Context.Edit(what, opts...), opts)
}

func (r replyCounter) EditOrSend(what interface{}, opts ...interface{}) error {
	return r.record(r.Context.EditOrSend(what, opts...), opts)
}

// ReplyCounterMiddleware feeds the messages/kb fields of the handler summary line.
// Prometheus delivery counters are kept by the sender.
func ReplyCounterMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(messagesKey, 0)
		c.Set(keyboardKey, false)
		return next(replyCounter{Context: c})
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(messagesKey).(int)
	kb, _ := c.Get(keyboardKey).(bool)
	return msgs, kb
}
