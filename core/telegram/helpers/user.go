package helpers

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// DisplayName picks how to address the sender: the chat username, then the
// sender's username, then the first name.
func DisplayName(c tele.Context) string {
	if chat := c.Chat(); chat != nil && strings.TrimSpace(chat.Username) != "" {
		return chat.Username
	}
	user := c.Sender()
	if user == nil {
		return ""
	}
	if strings.TrimSpace(user.Username) != "" {
		return user.Username
	}
	return strings.TrimSpace(user.FirstName)
}
