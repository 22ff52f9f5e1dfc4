package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/cbrbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidRegistration rejects empty names, nil handlers and commands without a description.
	ErrInvalidRegistration = errors.New("telegram: invalid registration")
	// ErrDuplicate rejects a second command, alias or callback with the same name.
	ErrDuplicate = errors.New("telegram: already registered")
)

// Command is a slash command with its menu description.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Hidden commands work but are left out of the Telegram command menu.
	Hidden  bool
	Aliases []string
}

// Registry maps command names, aliases and callback keys to handlers.
// It is safe for concurrent use.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]Command
	aliases          map[string]string
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry. Unknown callbacks are ignored until
// SetCallbackNotFound installs a handler.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

func commandKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "/" {
		return ""
	}
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}

// RegisterCommand adds cmd under name; the leading slash is optional.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	key := commandKey(name)
	if key == "" || cmd.Handler == nil || cmd.Description == "" {
		return r.reject("command", name, ErrInvalidRegistration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(key) {
		return r.reject("command", name, ErrDuplicate)
	}
	var aliases []string
	for _, a := range cmd.Aliases {
		if a = commandKey(a); a != "" && a != key {
			if r.taken(a) || slices.Contains(aliases, a) {
				return r.reject("alias", a, ErrDuplicate)
			}
			aliases = append(aliases, a)
		}
	}
	cmd.Aliases = aliases
	r.commands[key] = cmd
	for _, a := range aliases {
		r.aliases[a] = key
	}
	return nil
}

func (r *Registry) taken(key string) bool {
	_, cmd := r.commands[key]
	_, alias := r.aliases[key]
	return cmd || alias
}

func (r *Registry) reject(kind, name string, err error) error {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register."+kind+".skip",
		slog.String("name", name),
		slog.String("reason", err.Error()),
	)
	return fmt.Errorf("%w: %s %q", err, kind, name)
}

// LookupCommand resolves a command or alias, with or without the slash,
// to its canonical name.
func (r *Registry) LookupCommand(name string) (string, Command, bool) {
	key := commandKey(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	cmd, ok := r.commands[key]
	if !ok {
		return "", Command{}, false
	}
	return key, cmd, true
}

// CommandNames returns the canonical command names in order.
func (r *Registry) CommandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for k := range r.commands {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// MenuCommands lists the visible commands without the leading slash, as
// Telegram expects them.
func (r *Registry) MenuCommands() []tele.Command {
	var list []tele.Command
	for _, name := range r.CommandNames() {
		_, cmd, _ := r.LookupCommand(name)
		if !cmd.Hidden {
			list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
		}
	}
	return list
}

// RegisterCallback maps an inline button key to handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	key = strings.TrimSpace(key)
	if key == "" || handler == nil {
		return r.reject("callback", key, ErrInvalidRegistration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return r.reject("callback", key, ErrDuplicate)
	}
	r.callbacks[key] = handler
	return nil
}

// Callback returns the handler for key.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// CallbackKeys returns the registered keys in order.
func (r *Registry) CallbackKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetCallbackNotFound installs the handler for unknown callback keys.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the handler for unknown callback keys, if any.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback installs the handler for text that is not a command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

// TextFallback returns the handler for text that is not a command, if any.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// publishMenu sets the Telegram command menu. A failure only degrades the
// menu, so it is logged and not returned.
func publishMenu(bot *tele.Bot, reg *Registry) {
	list := reg.MenuCommands()
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "register.commands.set",
		slog.Int("commands", len(list)),
	)
}
