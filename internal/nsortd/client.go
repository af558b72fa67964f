package nsortd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"notesort/internal/model"
)

type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error (%d): %s", e.Code, e.Message) }

type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	r      *bufio.Reader
	w      *bufio.Writer
	nextID int64
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

func (c *Client) call(method string, params any, out any) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("client is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id := atomic.AddInt64(&c.nextID, 1)
	req := Request{JSONRPC: "2.0", Method: method, ID: json.RawMessage(fmt.Sprintf("%d", id))}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		req.Params = b
	}

	if err := WriteOneLine(c.w, req); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}

	line, err := ReadOneLine(c.r)
	if err != nil {
		return err
	}
	var resp rawResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return &RPCError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

func (c *Client) Ping() error {
	var out string
	if err := c.call("ping", nil, &out); err != nil {
		return err
	}
	if out != "pong" {
		return fmt.Errorf("unexpected ping result: %q", out)
	}
	return nil
}

func (c *Client) Version() (string, error) {
	var out string
	if err := c.call("version", nil, &out); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) Status() (model.Status, error) {
	var out model.Status
	if err := c.call("status", nil, &out); err != nil {
		return model.Status{}, err
	}
	return out, nil
}

func (c *Client) Reclassify(path string) (model.MoveResult, error) {
	var out model.MoveResult
	if err := c.call("reclassify", PathParams{Path: path}, &out); err != nil {
		return model.MoveResult{}, err
	}
	return out, nil
}

func (c *Client) Sweep() (model.SweepResult, error) {
	var out model.SweepResult
	if err := c.call("sweep", nil, &out); err != nil {
		return model.SweepResult{}, err
	}
	return out, nil
}

func (c *Client) IndexBuild() (model.IndexStats, error) {
	var out model.IndexStats
	if err := c.call("index.build", nil, &out); err != nil {
		return model.IndexStats{}, err
	}
	return out, nil
}

func (c *Client) TaskCreate(title string) (model.TaskCreated, error) {
	var out model.TaskCreated
	if err := c.call("task.create", TaskCreateParams{Title: title}, &out); err != nil {
		return model.TaskCreated{}, err
	}
	return out, nil
}

func (c *Client) TaskIcebox(path string) (model.MoveResult, error) {
	var out model.MoveResult
	if err := c.call("task.icebox", PathParams{Path: path}, &out); err != nil {
		return model.MoveResult{}, err
	}
	return out, nil
}

func (c *Client) TaskUnbacklog(path string) (model.MoveResult, error) {
	var out model.MoveResult
	if err := c.call("task.unbacklog", PathParams{Path: path}, &out); err != nil {
		return model.MoveResult{}, err
	}
	return out, nil
}

func (c *Client) History(limit int) ([]model.Move, error) {
	var out []model.Move
	if err := c.call("history", HistoryParams{Limit: limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ConfigGet() (map[string]string, error) {
	var out map[string]string
	if err := c.call("config.get", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ConfigSet(key, value string) (map[string]string, error) {
	var out map[string]string
	if err := c.call("config.set", ConfigSetParams{Key: key, Value: value}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
