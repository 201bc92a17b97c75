package session

import "github.com/cory-johannsen/drawguess/internal/protocol"

// Role is a player's part in the current round.
type Role int

// Roles. RoleNone applies while fewer than two players are present.
const (
	RoleNone Role = iota
	RoleDrawer
	RoleGuesser
)

// String returns the wire name used in ROLE lines.
func (r Role) String() string {
	switch r {
	case RoleDrawer:
		return protocol.RoleDrawer
	case RoleGuesser:
		return protocol.RoleGuesser
	default:
		return "NONE"
	}
}

// label is the chat suffix shown after a nickname.
func (r Role) label() string {
	if r == RoleDrawer {
		return "рисует"
	}
	return "угадывает"
}

// Client is the session's view of a connection.
//
// Implementations MUST make WriteLine safe for concurrent use and Close
// idempotent.
type Client interface {
	// ID uniquely identifies the connection.
	ID() string
	// WriteLine sends one protocol line; the newline is appended by the client.
	WriteLine(line string) error
	// Close terminates the connection.
	Close() error
}

// Player is a participant bound to one connection.
type Player struct {
	Nickname string
	Score    int
	Role     Role

	client Client
}

// tag renders "<nickname>(<role label>)" for chat lines.
func (p *Player) tag() string {
	return p.Nickname + "(" + p.Role.label() + ")"
}
