package app

import "fmt"

// DeliveryError is a reply that Telegram did not accept. It is logged, never
// shown to the user.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver reply to chat %d: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Code is picked up as err_code by the handler summary logs.
func (e *DeliveryError) Code() string { return "tg_delivery" }
