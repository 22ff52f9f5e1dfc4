// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"errors"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent is one recorded outbound message.
type Sent struct {
	Text    string
	Options *tele.SendOptions
}

// Context implements the subset of tele.Context used by the bot's handlers.
// Methods outside that subset panic through the nil embedded interface.
type Context struct {
	tele.Context

	Upd     tele.Update
	SendErr error

	mu        sync.Mutex
	store     map[string]interface{}
	sent      []Sent
	responded int
}

// NewMessage builds a context for a text message from userID in chatID.
func NewMessage(chatID, userID int64, text string) *Context {
	chat := &tele.Chat{ID: chatID, Type: tele.ChatPrivate}
	user := &tele.User{ID: userID, Username: "user", FirstName: "Test"}
	return &Context{Upd: tele.Update{
		ID:      int(chatID) + len(text),
		Message: &tele.Message{Text: text, Chat: chat, Sender: user},
	}}
}

// NewCallback builds a context for an inline button press carrying data.
func NewCallback(chatID, userID int64, data string) *Context {
	chat := &tele.Chat{ID: chatID, Type: tele.ChatPrivate}
	user := &tele.User{ID: userID, Username: "user", FirstName: "Test"}
	return &Context{Upd: tele.Update{
		ID: int(chatID) + len(data),
		Callback: &tele.Callback{
			ID:      "cb",
			Data:    data,
			Sender:  user,
			Message: &tele.Message{Chat: chat},
		},
	}}
}

func (c *Context) Update() tele.Update      { return c.Upd }
func (c *Context) Message() *tele.Message   { return c.Upd.Message }
func (c *Context) Callback() *tele.Callback { return c.Upd.Callback }

func (c *Context) Sender() *tele.User {
	switch {
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Sender
	case c.Upd.Message != nil:
		return c.Upd.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	switch {
	case c.Upd.Callback != nil && c.Upd.Callback.Message != nil:
		return c.Upd.Callback.Message.Chat
	case c.Upd.Message != nil:
		return c.Upd.Message.Chat
	}
	return nil
}

func (c *Context) Text() string {
	if c.Upd.Message == nil {
		return ""
	}
	return c.Upd.Message.Text
}

func (c *Context) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]interface{})
	}
	c.store[key] = val
}

func (c *Context) Send(what interface{}, opts ...interface{}) error {
	if c.SendErr != nil {
		return c.SendErr
	}
	text, ok := what.(string)
	if !ok {
		return errors.New("teletest: only text messages are supported")
	}
	rec := Sent{Text: text}
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			rec.Options = v
		case *tele.ReplyMarkup:
			rec.Options = &tele.SendOptions{ReplyMarkup: v}
		}
	}
	c.mu.Lock()
	c.sent = append(c.sent, rec)
	c.mu.Unlock()
	return nil
}

func (c *Context) Respond(...*tele.CallbackResponse) error {
	c.mu.Lock()
	c.responded++
	c.mu.Unlock()
	return nil
}

// SentMessages returns a copy of everything sent so far.
func (c *Context) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Responded reports how many times the callback was answered.
func (c *Context) Responded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responded
}
