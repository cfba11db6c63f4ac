package intercom

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
)

// Role selects which end of the intercom a Session plays.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleDoor  Role = "door"
)

// State is the session state.
type State string

const (
	StateIdle      State = "IDLE"
	StateStreaming State = "STREAMING"
)

// readPoll bounds how long the receive loop blocks before checking for Stop.
const readPoll = 100 * time.Millisecond

// Logger defines the logging interface used by the intercom.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session is one end of the audio relay.
//
// Thread Safety: Start, Stop and State are safe for concurrent use.
type Session struct {
	cfg    config.IntercomConfig
	open   AudioOpener
	logger Logger

	mu    sync.Mutex
	state State
	peer  *net.UDPAddr
	conn  *net.UDPConn
	audio AudioDevice
	stop  chan struct{}
	loops *sync.WaitGroup // per Start; a timed-out Stop leaves the old one behind
}

// NewSession creates an idle Session. open is called on every Start.
func NewSession(cfg config.IntercomConfig, open AudioOpener, logger Logger) *Session {
	if logger == nil {
		logger = noopLogger{}
	}
	if open == nil {
		open = OpenSilent
	}
	return &Session{cfg: cfg, open: open, logger: logger, state: StateIdle}
}

// ports returns the (send, listen) ports for role.
func (s *Session) ports(role Role) (send, listen int, err error) {
	switch role {
	case RoleAdmin:
		return s.cfg.DoorPort, s.cfg.AdminPort, nil
	case RoleDoor:
		return s.cfg.AdminPort, s.cfg.DoorPort, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRole, role)
}

// Start begins streaming with peer (an IP address) in the given role.
func (s *Session) Start(peer string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStreaming {
		return ErrAlreadyStreaming
	}

	sendPort, listenPort, err := s.ports(role)
	if err != nil {
		return err
	}
	if peer == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidPeer)
	}
	peerAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(peer, strconv.Itoa(sendPort)))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPeer, err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: listenPort})
	if err != nil {
		return fmt.Errorf("binding intercom port %d: %w", listenPort, err)
	}
	audio, err := s.open()
	if err != nil {
		conn.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("opening audio device: %w", err)
	}

	s.peer = peerAddr
	s.conn = conn
	s.audio = audio
	s.stop = make(chan struct{})
	s.loops = &sync.WaitGroup{}
	s.state = StateStreaming

	frameSize := s.cfg.FrameSize
	if frameSize <= 0 {
		frameSize = 2048
	}
	s.loops.Add(2)
	go s.sendLoop(s.loops, conn, audio, peerAddr, frameSize, s.stop)
	go s.receiveLoop(s.loops, conn, audio, frameSize, s.stop)

	s.logger.Info("intercom started", "role", role, "peer", peerAddr.String(), "listen_port", listenPort)
	return nil
}

// Stop ends the session. Both loops are given StopTimeout to exit before the
// audio device and socket are released. Stop on an idle session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return
	}
	close(s.stop)

	loops := s.loops
	done := make(chan struct{})
	go func() {
		loops.Wait()
		close(done)
	}()

	timeout := s.cfg.StopTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("intercom loops did not exit in time", "timeout", timeout)
	}

	if err := s.audio.Close(); err != nil {
		s.logger.Warn("closing audio device", "error", err)
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("closing intercom socket", "error", err)
	}

	s.state = StateIdle
	s.conn, s.audio, s.peer, s.loops = nil, nil, nil, nil
	s.logger.Info("intercom stopped")
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LocalAddr returns the bound socket address while streaming.
func (s *Session) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Session) sendLoop(wg *sync.WaitGroup, conn *net.UDPConn, audio AudioDevice, peer *net.UDPAddr, frameSize int, stop <-chan struct{}) {
	defer wg.Done()
	buf := make([]byte, frameSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := audio.ReadFrame(buf)
		if err != nil {
			if !errors.Is(err, ErrAudioClosed) {
				s.logger.Error("reading audio frame", "error", err)
			}
			return
		}
		if _, err := conn.WriteToUDP(buf[:n], peer); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Debug("audio frame dropped", "error", err)
		}
	}
}

func (s *Session) receiveLoop(wg *sync.WaitGroup, conn *net.UDPConn, audio AudioDevice, frameSize int, stop <-chan struct{}) {
	defer wg.Done()
	buf := make([]byte, frameSize*4)
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(readPoll)); err != nil {
			return
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("receiving audio frame", "error", err)
			}
			return
		}
		if err := audio.WriteFrame(buf[:n]); err != nil {
			if !errors.Is(err, ErrAudioClosed) {
				s.logger.Error("playing audio frame", "error", err)
			}
			return
		}
	}
}
