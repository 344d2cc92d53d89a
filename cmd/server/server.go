package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nickyhof/TableDB"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/db"
	"github.com/nickyhof/TableDB/internal/config"
)

// maxLineSize bounds one request line.
const maxLineSize = 4 << 20

// Server exposes a TableDB instance over TCP, one JSON request per line.
type Server struct {
	listener net.Listener
	instance *TableDB.Instance
	identity core.Identity
	engine   *db.Engine
	auth     config.AuthConfig
	logger   *slog.Logger
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
	wg       sync.WaitGroup
}

type ServerOption func(*Server)

// WithAuth requires connections to authenticate before sending requests.
func WithAuth(cfg config.AuthConfig) ServerOption {
	return func(s *Server) { s.auth = cfg }
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a server whose unauthenticated requests act as identity.
func NewServer(instance *TableDB.Instance, identity core.Identity, opts ...ServerOption) *Server {
	s := &Server{
		instance: instance,
		identity: identity,
		logger:   slog.New(slog.DiscardHandler),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = instance.Engine(identity)
	return s
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.logger.Info("server listening", "addr", listener.Addr().String(), "auth", s.auth.Enabled)

	go s.acceptLoop()
	return nil
}

// Stop closes the listener and waits for open connections to finish. Later
// calls wait the same way and return the first call's error.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.stopErr = s.listener.Close()
		}
	})
	s.wg.Wait()
	return s.stopErr
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Error("accept failed", "error", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	state := &ConnectionState{sessionID: uuid.NewString()}
	logger := s.logger.With("session", state.sessionID, "remote", conn.RemoteAddr().String())
	logger.Info("client connected")

	// Unblock the read below on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.done:
			conn.Close()
		case <-ctx.Done():
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			logger.Info("client disconnected")
			return
		}

		var response Response
		if isAuthCommand(line) {
			response = s.handleAuth(line, state)
		} else {
			response = s.execute(ctx, state, []byte(line))
		}

		data, err := EncodeResponse(response)
		if err != nil {
			logger.Error("failed to encode response", "error", err)
			continue
		}
		if _, err := conn.Write(data); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		logger.Warn("read failed", "error", err)
	}
}

// engineFor returns the engine a request on this connection runs with.
func (s *Server) engineFor(state *ConnectionState) (*db.Engine, error) {
	if !s.auth.Enabled {
		return s.engine, nil
	}
	if !state.authenticated {
		return nil, errAuthRequired
	}
	if !state.IsAuthenticated() {
		return nil, errTokenExpired
	}
	return s.engine.As(*state.Identity()), nil
}

func (s *Server) execute(ctx context.Context, state *ConnectionState, line []byte) Response {
	engine, err := s.engineFor(state)
	if err != nil {
		return errorResponse(err)
	}

	result, err := engine.ExecuteJSON(ctx, line)
	if err != nil {
		return errorResponse(err)
	}
	return resultResponse(result)
}
