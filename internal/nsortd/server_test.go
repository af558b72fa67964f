package nsortd

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"
)

// A server with no handlers still answers the liveness methods; everything
// that needs the vault reports an application error.
func TestServer_BareServerMethods(t *testing.T) {
	s := NewServer(Options{Listen: "127.0.0.1:0"}, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	conn, err := net.Dial("tcp", waitAddr(t, s, time.Second))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	r := bufio.NewReader(conn)

	cases := []struct {
		method   string
		wantCode int
	}{
		{"ping", 0},
		{"version", 0},
		{"status", CodeApplication},
		{"sweep", CodeApplication},
	}
	for i, c := range cases {
		id := json.RawMessage([]byte{byte('1' + i)})
		if err := WriteOneLine(conn, Request{JSONRPC: "2.0", Method: c.method, ID: id}); err != nil {
			t.Fatalf("%s: write: %v", c.method, err)
		}
		line, err := ReadOneLine(r)
		if err != nil {
			t.Fatalf("%s: read: %v", c.method, err)
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			t.Fatalf("%s: decode %q: %v", c.method, line, err)
		}
		if string(resp.ID) != string(id) {
			t.Fatalf("%s: id=%s want %s", c.method, resp.ID, id)
		}
		switch {
		case c.wantCode == 0 && resp.Error != nil:
			t.Fatalf("%s: error=%+v", c.method, resp.Error)
		case c.wantCode != 0 && (resp.Error == nil || resp.Error.Code != c.wantCode):
			t.Fatalf("%s: error=%+v want code %d", c.method, resp.Error, c.wantCode)
		}
	}

	_ = s.Close()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not stop after Close")
	}
}

func TestServer_ClientAfterClose(t *testing.T) {
	s := NewServer(Options{Listen: "127.0.0.1:0"}, nil)
	go func() { _ = s.Run() }()

	c, err := Dial(waitAddr(t, s, time.Second))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	v, err := c.Version()
	if err != nil || v == "" {
		t.Fatalf("version=%q err=%v", v, err)
	}
	_ = s.Close()
	if err := c.Ping(); err == nil {
		t.Fatal("expected error after server close")
	}
}

func waitAddr(t *testing.T, s *Server, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr := s.Addr(); addr != "" {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start listening in time")
	return ""
}
