package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"av-fc-core/flight_computer/executive"
	"av-fc-core/flight_computer/messages"
)

// PcapReceiver replays UDP datagrams captured on the listen port. Arrival
// times are capture timestamps relative to the first packet in the file.
type PcapReceiver struct {
	file   io.Closer
	reader *pcapgo.Reader
	port   layers.UDPPort
	first  time.Time

	Skipped int
}

// OpenPcapReceiver opens a classic pcap file (not pcapng).
func OpenPcapReceiver(path string, listenPort uint16) (*PcapReceiver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewPcapReceiver(f, listenPort)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.file = f
	return r, nil
}

func NewPcapReceiver(r io.Reader, listenPort uint16) (*PcapReceiver, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("pcap header: %w", err)
	}
	return &PcapReceiver{reader: pr, port: layers.UDPPort(listenPort)}, nil
}

// Receive returns the next UDP datagram addressed to the listen port, or
// io.EOF once the capture is exhausted. Other traffic is skipped.
func (p *PcapReceiver) Receive(ctx context.Context) (executive.Datagram, error) {
	for {
		if err := ctx.Err(); err != nil {
			return executive.Datagram{}, err
		}

		data, ci, err := p.reader.ReadPacketData()
		if err != nil {
			return executive.Datagram{}, err
		}

		packet := gopacket.NewPacket(data, p.reader.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			p.Skipped++
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || udp.DstPort != p.port {
			p.Skipped++
			continue
		}

		if p.first.IsZero() {
			p.first = ci.Timestamp
		}
		recvTime := uint64(0)
		if d := ci.Timestamp.Sub(p.first); d > 0 {
			recvTime = uint64(d.Nanoseconds())
		}

		seq, payload, err := messages.SplitSequence(udp.Payload)
		if err != nil {
			return executive.Datagram{}, fmt.Errorf("captured datagram at %s: %w", ci.Timestamp.Format(time.RFC3339Nano), err)
		}
		return executive.Datagram{
			Sequence: seq,
			Port:     uint16(udp.SrcPort),
			Time:     recvTime,
			Payload:  payload,
		}, nil
	}
}

func (p *PcapReceiver) Close() error {
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}
