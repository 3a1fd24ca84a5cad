// Package server exposes a line handler over TCP: one JSON request per line in,
// one text reply per line out, one goroutine per connection.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/minimatch/pkg/util"
)

// Handler answers one request line. It must be safe for concurrent use.
type Handler interface {
	HandleRaw(line []byte) string
}

// Replies are framed by '\n', so line breaks inside one are written escaped.
var lineEscaper = strings.NewReplacer("\r", `\r`, "\n", `\n`)

type Config struct {
	Addr         string
	MaxLineBytes int
	IdleTimeout  time.Duration // zero disables the read deadline
}

type Server struct {
	cfg     Config
	handler Handler
	logger  *zap.SugaredLogger

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func New(cfg Config, handler Handler, logger *zap.SugaredLogger) *Server {
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 64 * 1024
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  util.OrNop(logger),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen binds the configured address. Use Addr afterwards to learn the real port.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.logger.Infow("tcp_listening", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled, then closes the listener and
// every open connection and waits for their goroutines.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, s.shutdown)
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				s.logger.Infow("tcp_stopped")
				return nil
			}
			s.logger.Warnw("tcp_accept_failed", "err", err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		if ctx.Err() != nil {
			// accepted while shutdown was closing the others
			conn.Close()
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		s.ln.Close()
	}
	for c := range s.conns {
		c.Close()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("tcp_handler_panic", "remote", remote, "panic", r)
		}
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.wg.Done()
		s.logger.Debugw("tcp_conn_closed", "remote", remote)
	}()
	s.logger.Debugw("tcp_conn_opened", "remote", remote)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, min(4096, s.cfg.MaxLineBytes)), s.cfg.MaxLineBytes)
	w := bufio.NewWriter(conn)

	for {
		if s.cfg.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		reply := lineEscaper.Replace(s.handler.HandleRaw(line))
		if _, err := w.WriteString(reply + "\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debugw("tcp_read_failed", "remote", remote, "err", err)
	}
}
