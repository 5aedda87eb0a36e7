package main

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// UDPSender transmits telemetry packets to the ground station from an
// ephemeral local port.
type UDPSender struct {
	conn *ipv4.PacketConn
	dst  *net.UDPAddr
}

func NewUDPSender(cfg TelemetryConfig) (*UDPSender, error) {
	dst, err := net.ResolveUDPAddr("udp4", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cfg.Address, err)
	}
	raw, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("telemetry socket: %w", err)
	}

	conn := ipv4.NewPacketConn(raw)
	if cfg.TOS > 0 {
		if err := conn.SetTOS(cfg.TOS); err != nil {
			raw.Close()
			return nil, fmt.Errorf("set tos %d: %w", cfg.TOS, err)
		}
	}
	if dst.IP.IsMulticast() && cfg.MulticastTTL > 0 {
		if err := conn.SetMulticastTTL(cfg.MulticastTTL); err != nil {
			raw.Close()
			return nil, fmt.Errorf("set multicast ttl %d: %w", cfg.MulticastTTL, err)
		}
	}
	return &UDPSender{conn: conn, dst: dst}, nil
}

// Send writes one datagram. The packet is not retained.
func (s *UDPSender) Send(packet []byte) error {
	n, err := s.conn.WriteTo(packet, nil, s.dst)
	if err != nil {
		return err
	}
	if n != len(packet) {
		return fmt.Errorf("short write to %s: %d of %d bytes", s.dst, n, len(packet))
	}
	return nil
}

func (s *UDPSender) Destination() *net.UDPAddr {
	return s.dst
}

func (s *UDPSender) Close() error {
	return s.conn.Close()
}
