// Package udp rebroadcasts the NMEA feed to a ground station or EFB over
// UDP, alongside the primary UART output.
package udp

import (
	"fmt"
	"net"
)

type Broadcaster struct {
	dest string
	conn *net.UDPConn
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{
		dest: dest,
		conn: conn,
	}, nil
}

// Send transmits one datagram. Empty payloads are dropped silently.
func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

// SendSentences concatenates NMEA sentences into one datagram so a
// GGA/RMC pair arrives atomically.
func (b *Broadcaster) SendSentences(sentences ...[]byte) error {
	var out []byte
	for _, s := range sentences {
		out = append(out, s...)
	}
	return b.Send(out)
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
