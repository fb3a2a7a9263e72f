package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/viert/flatfs/protocol"
)

var (
	ErrMultilineContent = errors.New("content must fit on one line")
)

// RemoteError is an ERROR response returned by the server
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Client is a line protocol connection. It is safe for concurrent use,
// requests are serialized.
type Client struct {
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
	lock    sync.Mutex
}

// Dial connects to a flatfs server. A non-zero timeout limits both
// the dial and every request round trip.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:    conn,
		r:       bufio.NewReader(conn),
		timeout: timeout,
	}, nil
}

func (c *Client) send(line string) error {
	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *Client) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Do sends a raw request line and returns the raw response line
func (c *Client) Do(line string) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.send(line); err != nil {
		return "", err
	}
	return c.readLine()
}

func (c *Client) mutate(cmd protocol.Command) error {
	resp, err := c.Do(cmd.String())
	if err != nil {
		return err
	}
	if protocol.IsError(resp) {
		return &RemoteError{Message: protocol.ErrorText(resp)}
	}
	if !protocol.IsSuccess(resp) {
		return fmt.Errorf("unexpected response %q", resp)
	}
	return nil
}

func (c *Client) Create(name string) error {
	return c.mutate(protocol.Command{Verb: protocol.VerbCreate, Name: name})
}

func (c *Client) Write(name string, data []byte) error {
	if strings.ContainsAny(string(data), "\r\n") {
		return ErrMultilineContent
	}
	return c.mutate(protocol.Command{Verb: protocol.VerbWrite, Name: name, Content: string(data)})
}

func (c *Client) Delete(name string) error {
	return c.mutate(protocol.Command{Verb: protocol.VerbDelete, Name: name})
}

// Read returns the content of a file. Content holding line breaks
// arrives after a header announcing its length and is read verbatim.
func (c *Client) Read(name string) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	cmd := protocol.Command{Verb: protocol.VerbRead, Name: name}
	if err := c.send(cmd.String()); err != nil {
		return nil, err
	}
	resp, err := c.readLine()
	if err != nil {
		return nil, err
	}
	if protocol.IsError(resp) {
		return nil, &RemoteError{Message: protocol.ErrorText(resp)}
	}

	n, follows := protocol.ContentFollows(resp)
	if !follows {
		return protocol.ParseContent(resp)
	}
	buf := make([]byte, n+1)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, fmt.Errorf("error reading %d bytes of content: %w", n, err)
	}
	if buf[n] != '\n' {
		return nil, fmt.Errorf("content of %d bytes is not terminated by a line break", n)
	}
	return buf[:n], nil
}

func (c *Client) List() ([]string, error) {
	resp, err := c.Do(string(protocol.VerbList))
	if err != nil {
		return nil, err
	}
	if protocol.IsError(resp) {
		return nil, &RemoteError{Message: protocol.ErrorText(resp)}
	}
	return protocol.ParseListing(resp)
}

// Quit asks the server to disconnect and closes the connection
func (c *Client) Quit() error {
	resp, err := c.Do(string(protocol.VerbQuit))
	c.conn.Close()
	if err != nil {
		return err
	}
	if resp != protocol.Disconnecting {
		return fmt.Errorf("unexpected response %q", resp)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
