package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/filewarden/filewarden/internal/logger"
)

// Server listens on a Unix domain socket and dispatches each connection's
// request stream to a Handler (spec.md §6, grounded on ipc_server.py's
// IPCServer.start/_accept_connections/_handle_client).
type Server struct {
	socketPath   string
	handler      *Handler
	listener     net.Listener
	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// NewServer creates a control server bound to socketPath, not yet listening.
func NewServer(socketPath string, handler *Handler) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		shutdown:   make(chan struct{}),
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start removes any stale socket file, binds and begins accepting
// connections in the background. It mirrors the permissive 0666 mode the
// source applies so non-root GUI clients can connect.
func (s *Server) Start() error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0o666); err != nil {
		_ = listener.Close()
		return err
	}

	logger.Info("control channel listening", logger.Path(s.socketPath))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				logger.Warn("control channel accept error", logger.Err(err))
				return
			}
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConn(c)
		}(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	defer func() {
		_ = conn.Close()
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
	}()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		frame, err := readFrame(reader)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				logger.Debug("control channel read error", logger.Err(err))
			}
			return
		}

		var req wireRequest
		if err := json.Unmarshal(frame, &req); err != nil {
			_ = writeResponse(writer, Response{Success: false, Error: "control: malformed request"})
			continue
		}

		resp := s.handler.Dispatch(req.Command, req.Params)
		if err := writeResponse(writer, resp); err != nil {
			logger.Debug("control channel write error", logger.Err(err))
			return
		}
	}
}

// Stop closes the listener and every open connection, waits for their
// goroutines to return, and unlinks the socket file.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.connsMu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.connsMu.Unlock()
	})
	s.wg.Wait()
	_ = os.RemoveAll(s.socketPath)
}
