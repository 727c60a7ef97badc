package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client is a connection to a running daemon's control socket, used by the
// CLI. Grounded on original_source/daemon/ipc_server.py's IPCClient:
// connect once, send length-prefixed JSON requests, read length-prefixed
// JSON responses back.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to the control socket at path.
func Dial(path string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", path, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Close disconnects from the daemon.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends one command with its params and returns the decoded response.
// params may be nil.
func (c *Client) Call(command string, params any) (Response, error) {
	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return Response{}, fmt.Errorf("encode params: %w", err)
		}
		raw = encoded
	}

	req := wireRequest{Command: command, Params: raw}
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	if err := writeFrame(c.conn, payload); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}

	frame, err := readFrame(c.reader)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(frame, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Decode re-marshals resp.Data into out, for callers that know the
// expected shape of a given command's response.
func (resp Response) Decode(out any) error {
	encoded, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}
