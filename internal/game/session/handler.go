package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cory-johannsen/drawguess/internal/frontend/tcp"
	"github.com/cory-johannsen/drawguess/internal/observability"
	"github.com/cory-johannsen/drawguess/internal/protocol"
)

// Handler connects accepted TCP connections to a Session. It implements
// tcp.SessionHandler.
type Handler struct {
	session *Session
	logger  *zap.Logger
}

// NewHandler creates a Handler.
//
// Precondition: session and logger must be non-nil.
func NewHandler(session *Session, logger *zap.Logger) *Handler {
	return &Handler{session: session, logger: logger}
}

// HandleSession registers conn, feeds every parsed line to the Session and
// disconnects it when reading stops.
//
// Postcondition: conn is no longer known to the Session. Returns nil on a
// clean EOF.
func (h *Handler) HandleSession(ctx context.Context, conn *tcp.Conn) error {
	h.session.Register(conn)
	// Stats must still be written when shutdown cancels ctx.
	defer h.session.Disconnect(context.WithoutCancel(ctx), conn)

	for {
		line, err := conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading from %s: %w", conn.ID(), err)
		}

		msg, ok := protocol.Parse(line)
		if !ok {
			continue
		}
		h.logger.Debug("received",
			zap.String("conn_id", conn.ID()),
			zap.String("command", msg.Command),
			observability.Line("line", line),
		)

		if err := h.session.Handle(ctx, conn, msg); err != nil {
			if rejected(err) {
				h.logger.Info("connection rejected",
					zap.String("conn_id", conn.ID()),
					zap.String("remote_addr", conn.RemoteAddr().String()),
					zap.Error(err),
				)
			}
			return err
		}
	}
}

// rejected reports whether err means the session turned the connection away.
func rejected(err error) bool {
	return errors.Is(err, ErrSessionFull) ||
		errors.Is(err, ErrEmptyNickname) ||
		errors.Is(err, ErrNicknameTaken)
}
