// Package peer implements a single connected peer's read/write/ping
// session, dispatching inbound messages to the handlers the rest of
// the node supplies, per the specification's §4.9/§4.10.
package peer

import (
	"net"
	"time"
)

// Transport abstracts the raw byte stream a Session runs over, so
// tests can substitute net.Pipe() for a real TCP dial.
type Transport interface {
	ReadExact(buf []byte) error
	WriteAll(buf []byte) error
	Close() error
	SetDeadline(t time.Time) error
}

// connTransport adapts a net.Conn to the Transport interface.
type connTransport struct {
	conn net.Conn
}

// NewConnTransport wraps an established net.Conn.
func NewConnTransport(conn net.Conn) Transport {
	return &connTransport{conn: conn}
}

func (c *connTransport) ReadExact(buf []byte) error {
	_, err := readFull(c.conn, buf)
	return err
}

func (c *connTransport) WriteAll(buf []byte) error {
	_, err := c.conn.Write(buf)
	return err
}

func (c *connTransport) Close() error { return c.conn.Close() }

func (c *connTransport) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
