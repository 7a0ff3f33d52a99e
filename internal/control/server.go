// Package control serves the daemon's CBOR request/response protocol on
// a unix socket and provides the matching client. Each connection
// carries exactly one request and one response.
package control

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"codeberg.org/mutker/powerhald/internal/codec"
	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/logger"
)

const (
	readTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	maxRequestSize = 64 * 1024
	socketPerm     = 0o660
)

// ActionFunc handles one action. raw is the whole request including the
// action field. A nil result yields {ok: true}.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the envelope of every reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Code  string           `cbor:"code,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	logger     logger.Logger

	active sync.WaitGroup
}

func NewSocketServer(socketPath string, log logger.Logger) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		logger:     log,
	}
}

// Handle registers handler for action. Registering an action twice
// panics.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic("control: duplicate handler for action " + action)
	}
	s.handlers[action] = handler
}

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight requests. A stale socket file is replaced; the socket file
// is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	errFactory := errors.New()

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return errFactory.WithData(errors.ErrServe, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "remove_stale_socket",
			Path:  s.socketPath,
			Error: err.Error(),
		})
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errFactory.Wrap(errors.ErrServe, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	if err := os.Chmod(s.socketPath, socketPerm); err != nil {
		s.logger.Warn().Err(err).Str("path", s.socketPath).Msg("Failed to set socket permissions")
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info().Str("path", s.socketPath).Msg("Control socket listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error().Err(err).Msg("Accept failed")
			continue
		}

		s.active.Add(1)
		go func() {
			defer s.active.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.active.Wait()

	return nil
}

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, errors.New().Wrap(errors.ErrInvalidArgument, err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, errors.New().Wrap(errors.ErrInvalidArgument, err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, errors.New().WithMessage(errors.ErrInvalidArgument, "missing required field: action"))
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, errors.New().WithData(errors.ErrNotImplemented, header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Debug().Err(err).Str("action", header.Action).Msg("Action failed")
		s.writeError(conn, err)
		return
	}

	s.writeSuccess(conn, result)
}

func (s *SocketServer) writeError(conn net.Conn, err error) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{
		OK:    false,
		Error: err.Error(),
		Code:  string(errors.CodeOf(err)),
	}
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write error response")
	}
}

func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, errors.New().Wrap(errors.ErrInternal, err))
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write success response")
	}
}
