package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Server ties the wire protocol, store, sweeper, and connection
// supervision together around a single listening socket.
type Server struct {
	config *Config
	log    *logrus.Logger
	store  *Store
	stats  *Stats
	bufs   *bufferPool

	listener net.Listener
	conns    *pool.Pool
	cancel   context.CancelFunc
}

// NewServer constructs a Server ready to Start. Construction never
// fails; invalid configuration is caught by Config.Validate before a
// Server is built.
func NewServer(cfg *Config, log *logrus.Logger) *Server {
	return &Server{
		config: cfg,
		log:    log,
		store:  NewStore(cfg.Shards),
		stats:  NewStats(),
		bufs:   newBufferPool(64),
		conns:  pool.New(),
	}
}

// Start opens the listening socket, launches the sweeper, and accepts
// connections until the listener is closed by Stop. It blocks until
// the accept loop ends.
func (s *Server) Start() error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go runSweeper(ctx, sweeperConfig{
		Tick:          s.config.SweepTick,
		SampleSize:    s.config.SampleSize,
		SuccessFactor: s.config.SuccessFactor,
	}, s.store, s.stats, s.log)

	s.log.WithFields(logrus.Fields{
		"address": address,
		"shards":  s.store.ShardCount(),
	}).Info("server listening")

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.WithError(err).Warn("accept error")
			continue
		}
		s.stats.Connections.Inc()
		s.conns.Go(func() {
			s.handleConnection(conn)
		})
	}
}

// Stop closes the listener, cancels the sweeper, and waits for every
// in-flight connection goroutine to finish before returning.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.conns.Wait()
}

// handleConnection owns one client's lifetime: it parses frames,
// resolves and executes commands, and writes replies until the
// connection closes or a protocol error occurs. A panic while handling
// this connection is recovered and logged rather than propagated,
// since a conc.Pool's default behavior of re-raising a recovered panic
// at Wait() time would still crash the process at shutdown.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	var catcher panics.Catcher
	catcher.Try(func() {
		s.serve(conn)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		s.log.WithField("remote", conn.RemoteAddr()).
			WithError(recovered.AsError()).
			Error("recovered panic while handling connection")
	}
}

func (s *Server) serve(conn net.Conn) {
	reader := bufio.NewReaderSize(conn, s.config.ReadBufferSize)
	writer := bufio.NewWriterSize(conn, s.config.ReadBufferSize)

	for {
		value, err := Parse(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.WithField("remote", conn.RemoteAddr()).WithError(err).Debug("protocol error")
			}
			return
		}

		op := Resolve(value)
		reply := s.execute(op)

		buf := s.bufs.get()
		buf = reply.appendTo(buf)
		if _, err := writer.Write(buf); err != nil {
			s.bufs.put(buf)
			s.log.WithField("remote", conn.RemoteAddr()).WithError(err).Debug("write error")
			return
		}
		s.bufs.put(buf)

		if err := writer.Flush(); err != nil {
			s.log.WithField("remote", conn.RemoteAddr()).WithError(err).Debug("flush error")
			return
		}
	}
}

// execute runs a single resolved Operation against the store and
// stats, producing the Value to send back to the client.
func (s *Server) execute(op Operation) Value {
	s.stats.TotalOps.Inc()

	switch op.Kind {
	case OpPing:
		s.stats.PingOps.Inc()
		return SimpleStringValue("PONG")
	case OpEcho:
		s.stats.EchoOps.Inc()
		return BulkStringValue(op.Echo)
	case OpGet:
		s.stats.GetOps.Inc()
		frame, ok := s.store.Get(op.Key)
		if !ok {
			return NullBulkStringValue()
		}
		return BulkStringValue(frame.String())
	case OpSet:
		s.stats.SetOps.Inc()
		var frame Frame
		if op.Set.Present {
			frame = ExpiringFrame(op.Value, op.Set.TTL)
		} else {
			frame = PlainFrame(op.Value)
		}
		s.store.Set(op.Key, frame)
		return SimpleStringValue("OK")
	default:
		return ErrorValue(op.InvalidReason)
	}
}
