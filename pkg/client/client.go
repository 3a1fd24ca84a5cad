// Package client speaks the line protocol of pkg/server.
package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
	"github.com/uhyunpark/minimatch/pkg/protocol"
)

// Client sends one request at a time over a single connection.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn), timeout: timeout}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Do sends req and returns the reply line without its newline.
func (c *Client) Do(req protocol.Request) (string, error) {
	line, err := protocol.Encode(req)
	if err != nil {
		return "", err
	}
	return c.DoRaw(line)
}

// DoRaw sends line as-is, appending a newline when missing.
func (c *Client) DoRaw(line []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	if _, err := c.conn.Write(line); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	reply, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return strings.TrimSuffix(reply, "\n"), nil
}

func (c *Client) Register(name string) (string, error) {
	return c.Do(protocol.Request{ReqType: protocol.ReqRegister, Message: name})
}

func (c *Client) Hello(id ledger.UserID) (string, error) {
	return c.Do(protocol.Request{ReqType: protocol.ReqHello, UserID: protocol.Ref(id)})
}

func (c *Client) Trade(id ledger.UserID, order string) (string, error) {
	return c.Do(protocol.Request{ReqType: protocol.ReqTrade, UserID: protocol.Ref(id), Message: order})
}

func (c *Client) Status(id ledger.UserID) (string, error) {
	return c.Do(protocol.Request{ReqType: protocol.ReqStatus, UserID: protocol.Ref(id)})
}

func (c *Client) Reset() (string, error) {
	return c.Do(protocol.Request{ReqType: protocol.ReqReset})
}
