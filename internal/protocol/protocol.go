// Package protocol implements the line-oriented COMMAND:DATA wire format
// spoken between the draw-and-guess server and its clients.
//
// A line is split at its first colon only. Fields inside CHAT and DRAW data
// rely on fixed positions and are never escaped.
package protocol

import (
	"strconv"
	"strings"
)

// Command names.
const (
	Join      = "JOIN"
	Role      = "ROLE"
	Word      = "WORD"
	GameStart = "GAME_START"
	Draw      = "DRAW"
	Clear     = "CLEAR"
	Guess     = "GUESS"
	Correct   = "CORRECT"
	Score     = "SCORE"
	Chat      = "CHAT"
	Error     = "ERROR"
)

// Role payloads.
const (
	RoleDrawer  = "DRAWER"
	RoleGuesser = "GUESSER"
)

// drawFields is the number of comma-separated fields in DRAW data: x1,y1,x2,y2,color.
const drawFields = 5

// Message is a single decoded protocol line.
type Message struct {
	Command string
	Data    string
}

// String renders the message back into its wire form.
func (m Message) String() string {
	return Serialize(m.Command, m.Data)
}

// Parse decodes one line. Blank lines yield ok == false and must be skipped
// by the caller rather than treated as protocol errors.
//
// Postcondition: Command is trimmed; Data is everything after the first
// colon, untouched.
func Parse(line string) (Message, bool) {
	if strings.TrimSpace(line) == "" {
		return Message{}, false
	}
	cmd, data, found := strings.Cut(line, ":")
	if !found {
		return Message{Command: strings.TrimSpace(line)}, true
	}
	return Message{Command: strings.TrimSpace(cmd), Data: data}, true
}

// Serialize encodes a command and its data as "COMMAND:DATA".
func Serialize(command, data string) string {
	return command + ":" + data
}

// RoleLine assigns a role; role is RoleDrawer or RoleGuesser.
func RoleLine(role string) string { return Serialize(Role, role) }

// WordLine carries the secret word; an empty word clears the client display.
func WordLine(word string) string { return Serialize(Word, word) }

// GameStartLine carries a human-readable round announcement.
func GameStartLine(text string) string { return Serialize(GameStart, text) }

// DrawLine forwards stroke data unchanged.
func DrawLine(data string) string { return Serialize(Draw, data) }

// ClearLine clears the shared canvas.
func ClearLine() string { return Serialize(Clear, "") }

// CorrectLine announces the winner of a round.
func CorrectLine(nickname string) string { return Serialize(Correct, nickname) }

// ErrorLine reports a connection-fatal error.
func ErrorLine(text string) string { return Serialize(Error, text) }

// ChatLine renders a chat entry as "CHAT:<sender>:<text>".
func ChatLine(sender, text string) string {
	return Serialize(Chat, sender+":"+text)
}

// ScoreEntry is one "nickname=score" pair in a SCORE line.
type ScoreEntry struct {
	Nickname string
	Score    int
}

// ScoreLine renders "SCORE:n1=s1,n2=s2" in the given order.
func ScoreLine(entries ...ScoreEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Nickname+"="+strconv.Itoa(e.Score))
	}
	return Serialize(Score, strings.Join(parts, ","))
}

// ValidDrawData reports whether data has exactly the five comma-separated
// fields of a stroke segment. Field contents are not inspected.
func ValidDrawData(data string) bool {
	return strings.Count(data, ",") == drawFields-1
}
