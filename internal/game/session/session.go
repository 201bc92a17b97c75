// Package session runs the two-player draw-and-guess game: it binds
// connections to players, assigns roles, picks words, judges guesses,
// rotates rounds and relays strokes and chat.
//
// A Session is the only owner of game state. Handle, Register and
// Disconnect serialize on one mutex held for the whole call, including
// broadcasts and the pause between rounds.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/drawguess/internal/config"
	"github.com/cory-johannsen/drawguess/internal/game/words"
	"github.com/cory-johannsen/drawguess/internal/protocol"
	"github.com/cory-johannsen/drawguess/internal/stats"
)

// MaxPlayers is the session capacity.
const MaxPlayers = 2

// Sentinel errors returned by Handle when the sending connection has been
// rejected and closed.
var (
	ErrSessionFull   = errors.New("session is full")
	ErrEmptyNickname = errors.New("nickname is empty")
	ErrNicknameTaken = errors.New("nickname is already taken")
)

// User-facing texts.
const (
	systemSender     = "СИСТЕМА"
	msgServerFull    = "Сервер полон (максимум 2 игрока)"
	msgEmptyNickname = "Никнейм не может быть пустым"
	msgNicknameTaken = "Этот никнейм уже занят"
	msgWaiting       = "Ожидание 2-го игрока..."
	msgStartDrawing  = "Начните рисовать!"
	msgGuessPrefix   = "Угадайте, что рисует "
	msgWrongGuess    = "Неправильно! Попробуйте еще раз."
	msgWordLeak      = "Ошибка: нельзя писать слова, которые нужно угадывать!"
)

// Options controls pacing and scoring.
type Options struct {
	// RoundPause separates a correct guess from the next round.
	RoundPause time.Duration
	// StartDelay precedes the first round once the second player joins.
	StartDelay time.Duration
	// RejectGrace keeps a rejected connection open so its ERROR line is delivered.
	RejectGrace time.Duration
	// PointsPerGuess is added to the guesser's score on a correct guess.
	PointsPerGuess int
}

// OptionsFromConfig maps the game configuration section to Options.
func OptionsFromConfig(cfg config.GameConfig) Options {
	return Options{
		RoundPause:     cfg.RoundPause,
		StartDelay:     cfg.StartDelay,
		RejectGrace:    cfg.RejectGrace,
		PointsPerGuess: cfg.PointsPerGuess,
	}
}

// Session is the single game shared by every connection.
//
// Invariant: len(players) <= MaxPlayers; when started, exactly one player
// is the drawer and one the guesser; word != "" iff a round is active.
type Session struct {
	opts   Options
	picker *words.Picker
	store  *stats.Store
	logger *zap.Logger

	mu      sync.Mutex
	clients []Client
	players []*Player
	started bool
	word    string
	round   int
}

// New creates an empty Session.
//
// Precondition: picker, store and logger must be non-nil.
func New(opts Options, picker *words.Picker, store *stats.Store, logger *zap.Logger) *Session {
	return &Session{
		opts:   opts,
		picker: picker,
		store:  store,
		logger: logger,
	}
}

// Register adds c to the set of live connections that receive broadcasts.
// Registering the same connection twice has no effect.
func (s *Session) Register(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addClient(c)
}

// Handle applies one inbound message from c.
//
// Postcondition: Returns ErrSessionFull, ErrEmptyNickname or
// ErrNicknameTaken when c was rejected and closed; nil otherwise.
func (s *Session) Handle(ctx context.Context, c Client, msg protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addClient(c)

	switch msg.Command {
	case protocol.Join:
		return s.join(c, msg.Data)
	case protocol.Draw:
		s.draw(c, msg.Data)
	case protocol.Guess:
		s.guess(ctx, c, msg.Data)
	case protocol.Clear:
		s.broadcast(protocol.ClearLine())
	case protocol.Chat:
		s.chat(c, msg.Data)
	default:
		s.logger.Debug("ignoring unknown command",
			zap.String("conn_id", c.ID()),
			zap.String("command", msg.Command),
		)
	}
	return nil
}

// Disconnect removes c from the session. If c carried a player, every
// current player's stats are recorded, the player is removed and the game
// returns to waiting. Safe to call for unknown or already removed clients.
func (s *Session) Disconnect(ctx context.Context, c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeClient(c)
	_ = c.Close()

	p := s.playerFor(c)
	if p == nil {
		return
	}
	s.store.RecordRound(ctx, s.scores())

	for i, other := range s.players {
		if other == p {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}
	s.logger.Info("player left",
		zap.String("conn_id", c.ID()),
		zap.String("nickname", p.Nickname),
		zap.Int("score", p.Score),
		zap.Int("remaining", len(s.players)),
	)

	wasStarted := s.started
	s.started = false
	s.word = ""
	s.round = 0
	for _, rest := range s.players {
		rest.Role = RoleNone
		s.send(rest.client, protocol.GameStartLine(msgWaiting))
	}
	if len(s.players) > 0 {
		s.broadcastScores()
	}
	if wasStarted {
		s.logger.Info("game stopped, waiting for second player")
	}
}

func (s *Session) join(c Client, data string) error {
	if p := s.playerFor(c); p != nil {
		s.logger.Debug("ignoring repeated JOIN",
			zap.String("conn_id", c.ID()),
			zap.String("nickname", p.Nickname),
		)
		return nil
	}

	nickname := strings.TrimSpace(data)
	if nickname == "" {
		s.send(c, protocol.ErrorLine(msgEmptyNickname))
		s.reject(c)
		return ErrEmptyNickname
	}
	if len(s.players) >= MaxPlayers {
		s.logger.Info("rejecting player, session full",
			zap.String("conn_id", c.ID()),
			zap.String("nickname", nickname),
		)
		s.send(c, protocol.ErrorLine(msgServerFull))
		s.reject(c)
		return ErrSessionFull
	}
	if s.nicknameInUse(nickname) {
		s.logger.Info("rejecting player, nickname taken",
			zap.String("conn_id", c.ID()),
			zap.String("nickname", nickname),
		)
		s.send(c, protocol.ErrorLine(msgNicknameTaken))
		s.reject(c)
		return ErrNicknameTaken
	}

	s.players = append(s.players, &Player{Nickname: nickname, client: c})
	s.logger.Info("player joined",
		zap.String("conn_id", c.ID()),
		zap.String("nickname", nickname),
		zap.Int("players", len(s.players)),
	)

	if len(s.players) == MaxPlayers {
		pause(s.opts.StartDelay)
		s.startGame()
		return nil
	}
	s.send(c, protocol.GameStartLine(msgWaiting))
	s.broadcastScores()
	return nil
}

// nicknameInUse reports whether a bound player already uses nickname.
// Stats are keyed by the exact nickname, so the match is exact too.
func (s *Session) nicknameInUse(nickname string) bool {
	for _, p := range s.players {
		if p.Nickname == nickname {
			return true
		}
	}
	return false
}

// reject waits out the grace period, then closes and forgets c.
func (s *Session) reject(c Client) {
	pause(s.opts.RejectGrace)
	_ = c.Close()
	s.removeClient(c)
}

func (s *Session) startGame() {
	drawer, guesser := s.players[0], s.players[1]
	drawer.Role = RoleDrawer
	guesser.Role = RoleGuesser
	s.started = true
	s.round = 1
	s.word = s.picker.Pick()

	s.logger.Info("game started",
		zap.String("drawer", drawer.Nickname),
		zap.String("guesser", guesser.Nickname),
	)
	s.broadcastScores()
	s.announceRound(drawer, guesser)
}

func (s *Session) announceRound(drawer, guesser *Player) {
	s.send(drawer.client, protocol.RoleLine(protocol.RoleDrawer))
	s.send(drawer.client, protocol.WordLine(s.word))
	s.send(drawer.client, protocol.GameStartLine(msgStartDrawing))

	s.send(guesser.client, protocol.RoleLine(protocol.RoleGuesser))
	s.send(guesser.client, protocol.GameStartLine(msgGuessPrefix+drawer.Nickname))
}

func (s *Session) draw(c Client, data string) {
	p := s.playerFor(c)
	if p == nil || p.Role != RoleDrawer {
		return
	}
	if !protocol.ValidDrawData(data) {
		s.logger.Warn("dropping malformed DRAW",
			zap.String("conn_id", c.ID()),
			zap.String("nickname", p.Nickname),
			zap.String("data", data),
		)
		return
	}
	line := protocol.DrawLine(data)
	for _, other := range s.players {
		if other != p {
			s.send(other.client, line)
		}
	}
}

func (s *Session) guess(ctx context.Context, c Client, data string) {
	p := s.playerFor(c)
	if p == nil || p.Role != RoleGuesser || s.word == "" {
		return
	}

	text := strings.TrimSpace(data)
	if !strings.EqualFold(text, s.word) {
		s.broadcast(protocol.ChatLine(p.tag(), text))
		s.send(c, protocol.ChatLine(systemSender, msgWrongGuess))
		return
	}

	p.Score += s.opts.PointsPerGuess
	s.store.RecordRound(ctx, s.scores())
	s.logger.Info("correct guess",
		zap.String("nickname", p.Nickname),
		zap.String("word", s.word),
		zap.Int("round", s.round),
		zap.Int("score", p.Score),
	)

	s.broadcast(protocol.ChatLine(systemSender, p.tag()+" угадал(а)! Слово: "+s.word))
	s.broadcast(protocol.CorrectLine(p.Nickname))
	s.broadcast(protocol.ClearLine())

	pause(s.opts.RoundPause)
	s.nextRound()
}

// nextRound swaps roles, picks a new word and announces it.
func (s *Session) nextRound() {
	var drawer, guesser *Player
	for _, p := range s.players {
		if p.Role == RoleDrawer {
			p.Role = RoleGuesser
			guesser = p
		} else {
			p.Role = RoleDrawer
			drawer = p
		}
	}
	s.word = s.picker.Pick()
	s.round++

	s.broadcast(protocol.WordLine(""))
	s.announceRound(drawer, guesser)
	s.broadcastScores()
}

func (s *Session) chat(c Client, data string) {
	p := s.playerFor(c)
	if p == nil {
		return
	}
	text := strings.TrimSpace(data)
	if text == "" {
		return
	}
	if p.Role == RoleDrawer && s.word != "" && strings.EqualFold(text, s.word) {
		s.logger.Info("blocked drawer chat revealing the word", zap.String("nickname", p.Nickname))
		s.send(c, protocol.ChatLine(systemSender, msgWordLeak))
		return
	}
	s.broadcast(protocol.ChatLine(p.tag(), text))
}

func (s *Session) broadcastScores() {
	entries := make([]protocol.ScoreEntry, len(s.players))
	for i, p := range s.players {
		entries[i] = protocol.ScoreEntry{Nickname: p.Nickname, Score: p.Score}
	}
	s.broadcast(protocol.ScoreLine(entries...))
}

func (s *Session) broadcast(line string) {
	for _, c := range s.clients {
		s.send(c, line)
	}
}

// send writes one line; a failed write is logged and left to the reader
// goroutine to clean up.
func (s *Session) send(c Client, line string) {
	if err := c.WriteLine(line); err != nil {
		s.logger.Debug("write failed",
			zap.String("conn_id", c.ID()),
			zap.Error(err),
		)
	}
}

func (s *Session) scores() []stats.PlayerScore {
	out := make([]stats.PlayerScore, len(s.players))
	for i, p := range s.players {
		out[i] = stats.PlayerScore{Nickname: p.Nickname, Score: p.Score}
	}
	return out
}

func (s *Session) playerFor(c Client) *Player {
	for _, p := range s.players {
		if p.client.ID() == c.ID() {
			return p
		}
	}
	return nil
}

func (s *Session) addClient(c Client) {
	for _, existing := range s.clients {
		if existing.ID() == c.ID() {
			return
		}
	}
	s.clients = append(s.clients, c)
}

func (s *Session) removeClient(c Client) {
	for i, existing := range s.clients {
		if existing.ID() == c.ID() {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return
		}
	}
}

func pause(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// PlayerState is a read-only view of one player.
type PlayerState struct {
	Nickname string
	Score    int
	Role     Role
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	Players     []PlayerState
	Started     bool
	Word        string
	Round       int
	Connections int
}

// State returns a copy of the current state.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Players:     make([]PlayerState, len(s.players)),
		Started:     s.started,
		Word:        s.word,
		Round:       s.round,
		Connections: len(s.clients),
	}
	for i, p := range s.players {
		snap.Players[i] = PlayerState{Nickname: p.Nickname, Score: p.Score, Role: p.Role}
	}
	return snap
}
