package main

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// testConn pairs a connection with the single buffered reader used to
// read its replies, so replies spanning multiple lines (bulk strings)
// aren't lost to a throwaway bufio.Reader on each call.
type testConn struct {
	net.Conn
	r *bufio.Reader
}

func startTestServer(t *testing.T) *testConn {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("bad addr %q: %v", addr, err)
	}
	var port int
	if _, err := fmt.Sscan(portStr, &port); err != nil {
		t.Fatalf("bad port %q: %v", portStr, err)
	}

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.Shards = 4
	cfg.SweepTick = time.Millisecond

	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)

	srv := NewServer(cfg, log)

	go func() {
		if err := srv.Start(); err != nil {
			t.Logf("server exited: %v", err)
		}
	}()
	t.Cleanup(srv.Stop)

	deadline := time.Now().Add(time.Second)
	var conn net.Conn
	for time.Now().Before(deadline) {
		conn, err = net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect to test server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &testConn{Conn: conn, r: bufio.NewReader(conn)}
}

func (c *testConn) send(t *testing.T, frame string) {
	t.Helper()
	if _, err := c.Write([]byte(frame)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func (c *testConn) readLine(t *testing.T) string {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadString('\n')
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return line
}

func TestServerPing(t *testing.T) {
	conn := startTestServer(t)
	conn.send(t, "*1\r\n$4\r\nPING\r\n")
	if got := conn.readLine(t); got != "+PONG\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestServerEcho(t *testing.T) {
	conn := startTestServer(t)
	conn.send(t, "*2\r\n$4\r\nECHO\r\n$2\r\nhi\r\n")
	if got := conn.readLine(t); got != "$2\r\n" {
		t.Fatalf("got %q", got)
	}
	if got := conn.readLine(t); got != "hi\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestServerSetAndGet(t *testing.T) {
	conn := startTestServer(t)

	conn.send(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	if got := conn.readLine(t); got != "+OK\r\n" {
		t.Fatalf("got %q", got)
	}

	conn.send(t, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	if got := conn.readLine(t); got != "$1\r\n" {
		t.Fatalf("got %q", got)
	}
	if got := conn.readLine(t); got != "v\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestServerGetMissingReturnsNullBulkString(t *testing.T) {
	conn := startTestServer(t)
	conn.send(t, "*2\r\n$3\r\nGET\r\n$7\r\nmissing\r\n")
	if got := conn.readLine(t); got != "$-1\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestServerSetWithPXExpires(t *testing.T) {
	conn := startTestServer(t)

	conn.send(t, "*5\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n$2\r\nPX\r\n$1\r\n5\r\n")
	if got := conn.readLine(t); got != "+OK\r\n" {
		t.Fatalf("got %q", got)
	}

	time.Sleep(30 * time.Millisecond)

	conn.send(t, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	if got := conn.readLine(t); got != "$-1\r\n" {
		t.Fatalf("got %q, want expired key", got)
	}
}

func TestServerInvalidCommandReturnsError(t *testing.T) {
	conn := startTestServer(t)
	conn.send(t, "*1\r\n$8\r\nFLUSHALL\r\n")
	got := conn.readLine(t)
	if len(got) == 0 || got[0] != '-' {
		t.Fatalf("got %q, want an error frame", got)
	}
}
