package store

import (
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Client implements KV over a Unix socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 500 * time.Millisecond}
}

// Dial probes the daemon at socketPath and returns a client for it.
func Dial(socketPath string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return NewClient(socketPath), nil
}

func (c *Client) roundTrip(req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()
	// The whole exchange shares one deadline so a stalled daemon cannot
	// block the caller.
	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return Response{}, err
	}
	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return resp, decodeError(resp.Error)
	}
	return resp, nil
}

func (c *Client) Get(key string) ([]byte, error) {
	resp, err := c.roundTrip(Request{Op: OpGet, Key: key})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), resp.Value...), nil
}

func (c *Client) Put(key string, value []byte, ttl time.Duration) error {
	_, err := c.roundTrip(Request{Op: OpPut, Key: key, Value: value, TTLSeconds: int64(ttl / time.Second)})
	return err
}

func (c *Client) Delete(key string) error {
	_, err := c.roundTrip(Request{Op: OpDelete, Key: key})
	return err
}

func (c *Client) Scan(prefix string) ([]Record, error) {
	resp, err := c.roundTrip(Request{Op: OpScan, Key: prefix})
	if err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// decodeError maps wire errors back to the package sentinels.
func decodeError(msg string) error {
	switch msg {
	case ErrNotFound.Error():
		return ErrNotFound
	case ErrExpired.Error():
		return ErrExpired
	}
	return errors.New(msg)
}
