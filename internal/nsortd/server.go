package nsortd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"notesort/internal/logging"
	"notesort/internal/version"
)

const DefaultListen = "127.0.0.1:7338"

type Options struct {
	Listen string
	Logger *slog.Logger
}

type Server struct {
	opts Options
	h    *Handlers
	log  *slog.Logger

	mu        sync.Mutex
	listener  net.Listener
	conns     map[net.Conn]struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

func NewServer(opts Options, h *Handlers) *Server {
	if opts.Listen == "" {
		opts.Listen = DefaultListen
	}
	return &Server{
		opts:   opts,
		h:      h,
		log:    logging.OrDiscard(opts.Logger),
		conns:  map[net.Conn]struct{}{},
		closed: make(chan struct{}),
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen binds the socket so Addr is known before Run starts accepting.
func (s *Server) Listen() error {
	if s == nil {
		return fmt.Errorf("server is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	if s.isClosed() {
		return net.ErrClosed
	}
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

func (s *Server) Run() error {
	if s == nil {
		return fmt.Errorf("server is nil")
	}
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	s.log.Info("rpc listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return err
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		go s.handleConn(conn)
	}
}

// Serve runs until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-done:
		}
	}()
	return s.Run()
}

func (s *Server) Close() error {
	if s == nil {
		return nil
	}

	s.closeOnce.Do(func() { close(s.closed) })

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	conns := s.conns
	s.conns = map[net.Conn]struct{}{}
	s.mu.Unlock()

	for c := range conns {
		_ = c.Close()
	}
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (s *Server) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	defer func() { _ = w.Flush() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		var req Request
		line, err := ReadOneLine(r)
		if err != nil {
			if errors.Is(err, ErrLineTooLong) {
				_ = WriteOneLine(w, Response{
					JSONRPC: "2.0",
					ID:      json.RawMessage("null"),
					Error:   &ErrorObject{Code: CodeInvalidRequest, Message: err.Error()},
				})
			}
			return
		}

		if err := json.Unmarshal(line, &req); err != nil {
			_ = WriteOneLine(w, Response{
				JSONRPC: "2.0",
				ID:      json.RawMessage("null"),
				Error:   &ErrorObject{Code: CodeParseError, Message: "parse error"},
			})
			_ = w.Flush()
			continue
		}

		if len(req.ID) == 0 {
			// Notification: no response.
			_ = s.dispatch(ctx, req)
			continue
		}

		resp := s.dispatch(ctx, req)
		_ = WriteOneLine(w, resp)
		_ = w.Flush()
	}
}

func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalidParams("invalid params")
	}
	return nil
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	resp := Response{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		resp.Error = &ErrorObject{Code: CodeInvalidRequest, Message: "invalid jsonrpc version"}
		return resp
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case "ping":
		result = "pong"
	case "version":
		result = version.String()
	case "status":
		result, err = s.h.Status(ctx)
	case "reclassify":
		var p PathParams
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.h.Reclassify(ctx, p)
		}
	case "sweep":
		result, err = s.h.Sweep(ctx)
	case "index.build":
		result, err = s.h.IndexBuild(ctx)
	case "task.create":
		var p TaskCreateParams
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.h.TaskCreate(ctx, p)
		}
	case "task.icebox":
		var p PathParams
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.h.TaskIcebox(ctx, p)
		}
	case "task.unbacklog":
		var p PathParams
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.h.TaskUnbacklog(ctx, p)
		}
	case "history":
		var p HistoryParams
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.h.History(p)
		}
	case "config.get":
		result, err = s.h.ConfigGet()
	case "config.set":
		var p ConfigSetParams
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.h.ConfigSet(p)
		}
	default:
		resp.Error = &ErrorObject{Code: CodeMethodNotFound, Message: "method not found"}
		return resp
	}

	if err != nil {
		var pe *paramsError
		if errors.As(err, &pe) {
			resp.Error = &ErrorObject{Code: CodeInvalidParams, Message: pe.msg}
			return resp
		}
		s.log.Warn("rpc failed", "method", req.Method, "error", err)
		resp.Error = &ErrorObject{Code: CodeApplication, Message: err.Error()}
		return resp
	}
	resp.Result = result
	return resp
}
