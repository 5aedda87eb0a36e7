package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"av-fc-core/flight_computer/executive"
	"av-fc-core/flight_computer/messages"
)

// maxDatagram is large enough for any telemetry-sized packet we listen for.
const maxDatagram = 1500

// Receiver yields one datagram at a time. io.EOF ends the run.
type Receiver interface {
	Receive(ctx context.Context) (executive.Datagram, error)
	Close() error
}

// BootClock measures nanoseconds since the flight computer started.
type BootClock struct {
	boot time.Time
}

func NewBootClock() *BootClock {
	return &BootClock{boot: time.Now()}
}

// Nanos returns the monotonic nanoseconds elapsed since boot.
func (c *BootClock) Nanos() uint64 {
	return uint64(time.Since(c.boot).Nanoseconds())
}

// UDPReceiver blocks on the listen socket. The read deadline only exists so
// the loop can notice cancellation; it is not a receive timeout.
type UDPReceiver struct {
	conn  *net.UDPConn
	clock *BootClock
	poll  time.Duration
	buf   []byte
}

func NewUDPReceiver(address string, clock *BootClock) (*UDPReceiver, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", address, err)
	}
	return &UDPReceiver{
		conn:  conn,
		clock: clock,
		poll:  250 * time.Millisecond,
		buf:   make([]byte, maxDatagram),
	}, nil
}

// LocalAddr returns the bound address.
func (r *UDPReceiver) LocalAddr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}

// Receive returns the next datagram. The returned payload is only valid
// until the following call. A datagram too short to carry a sequence number
// returns messages.ErrTruncatedMessage.
func (r *UDPReceiver) Receive(ctx context.Context) (executive.Datagram, error) {
	for {
		if err := ctx.Err(); err != nil {
			return executive.Datagram{}, err
		}

		_ = r.conn.SetReadDeadline(time.Now().Add(r.poll))
		n, addr, err := r.conn.ReadFromUDP(r.buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return executive.Datagram{}, err
		}
		recvTime := r.clock.Nanos()

		seq, payload, err := messages.SplitSequence(r.buf[:n])
		if err != nil {
			return executive.Datagram{}, fmt.Errorf("datagram from %s: %w", addr, err)
		}
		return executive.Datagram{
			Sequence: seq,
			Port:     uint16(addr.Port),
			Time:     recvTime,
			Payload:  payload,
		}, nil
	}
}

func (r *UDPReceiver) Close() error {
	return r.conn.Close()
}
