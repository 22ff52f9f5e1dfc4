// Package state keeps the per-chat conversation state of Telegram bots.
// State lives in a Store (in-memory or Redis) keyed by chat ID; ChatQueue
// serializes the work done for one chat.
package state
