package state

import (
	"context"
	"errors"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation in the chat.
	StateIdle State = "idle"
)

// ErrUnknownBackend is returned by NewStore for an unsupported backend name.
var ErrUnknownBackend = errors.New("state: unknown backend")

// Store keeps exactly one State per chat. Chats never seen report StateIdle.
type Store interface {
	GetState(ctx context.Context, chatID int64) (State, error)
	SetState(ctx context.Context, chatID int64, st State) error
	ClearState(ctx context.Context, chatID int64) error
	Ping(ctx context.Context) error
}
