package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"sync"

	"blockcam/internal/logger"

	"github.com/disintegration/imaging"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// UDPSource receives JPEG frames split over UDP datagrams, as sent by
// ESP32 style network cameras, and serves the latest complete one.
type UDPSource struct {
	conn   *net.UDPConn
	logger *logger.Logger

	last   image.Image
	fresh  bool
	closed bool
	mu     sync.Mutex
}

// ListenUDP binds addr (for example ":5005") for incoming frames.
func ListenUDP(addr string, log *logger.Logger) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP %s: %w", addr, err)
	}
	log.Info("UDP camera source listening on %s", conn.LocalAddr())
	return &UDPSource{conn: conn, logger: log}, nil
}

// Addr returns the bound address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Name implements Source.
func (s *UDPSource) Name() string {
	return "udp" + s.conn.LocalAddr().String()
}

// Run reassembles frames until ctx is cancelled or the source is closed.
func (s *UDPSource) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	packet := make([]byte, 2048)
	frames := make(map[string]*bytes.Buffer)

	for {
		n, remote, err := s.conn.ReadFromUDP(packet)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		key := remote.IP.String()
		buf, ok := frames[key]
		if !ok {
			buf = new(bytes.Buffer)
			frames[key] = buf
		}

		data := packet[:n]
		if bytes.HasPrefix(data, jpegHeader) {
			buf.Reset()
		}
		buf.Write(data)

		if bytes.HasSuffix(data, jpegFooter) {
			img, err := imaging.Decode(bytes.NewReader(buf.Bytes()))
			buf.Reset()
			if err != nil {
				s.logger.Warning("Dropping corrupt frame from %s: %v", key, err)
				continue
			}
			s.mu.Lock()
			s.last = img
			s.fresh = true
			s.mu.Unlock()
		}
	}
}

// Read returns the newest complete frame not handed out before.
func (s *UDPSource) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceDone
	}
	if !s.fresh {
		return nil, ErrNoFrame
	}
	s.fresh = false
	return s.last, nil
}

// Close stops the listener.
func (s *UDPSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}
