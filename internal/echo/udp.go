package echo

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// UDPServer answers "<seq> <value>" datagrams with "<seq> <reply>".
type UDPServer struct {
	conn net.PacketConn
	opts options
	wg   sync.WaitGroup
}

// ListenUDP binds addr and starts serving.
func ListenUDP(addr string, opts ...Option) (*UDPServer, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}

	s := &UDPServer{conn: conn, opts: buildOptions(opts)}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr returns the bound address.
func (s *UDPServer) Addr() string {
	return s.conn.LocalAddr().String()
}

// Close stops the server and waits for the serve loop.
func (s *UDPServer) Close() error {
	err := s.conn.Close()
	s.wg.Wait()
	return err
}

func (s *UDPServer) serve() {
	defer s.wg.Done()

	buf := make([]byte, 64)
	for {
		n, peer, err := s.conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.opts.logger.Warn("UDP read failed", zap.Error(err))
			}
			return
		}

		reply, ok := s.reply(buf[:n])
		if !ok {
			continue
		}
		if _, err := s.conn.WriteTo(reply, peer); err != nil {
			s.opts.logger.Warn("UDP write failed", zap.Error(err))
		}
	}
}

func (s *UDPServer) reply(b []byte) ([]byte, bool) {
	seq, valueText, ok := strings.Cut(strings.TrimSpace(string(b)), " ")
	if !ok {
		s.opts.logger.Warn("Malformed datagram", zap.ByteString("data", b))
		return nil, false
	}
	v, err := strconv.ParseInt(valueText, 10, 64)
	if err != nil {
		s.opts.logger.Warn("Malformed datagram", zap.ByteString("data", b))
		return nil, false
	}

	resp, err := s.opts.responder(v)
	if err != nil {
		s.opts.logger.Debug("Responder refused value", zap.Int64("value", v), zap.Error(err))
		return nil, false
	}

	out := append([]byte(seq), ' ')
	return strconv.AppendInt(out, resp, 10), true
}
