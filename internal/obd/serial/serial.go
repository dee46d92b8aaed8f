package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"obdboard/internal/models"
	"obdboard/internal/obd"
	"obdboard/pkg/log"

	"github.com/tarm/serial"
	"go.uber.org/zap"
)

const (
	DefaultTimeout       = 2 * time.Second
	DefaultSearchTimeout = 8 * time.Second
	DefaultResetDelay    = 1 * time.Second
)

// readPause is how long a read loop waits when the port has nothing buffered.
var readPause = 10 * time.Millisecond

// Port is the part of a serial port the adapter needs.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// PortOpener opens name at the given baud rate.
type PortOpener func(name string, baud int) (Port, error)

// Config drives detection. It is not user facing: the adapter is always
// auto-detected, the hooks exist so the transport can run against fakes.
type Config struct {
	ListPorts     func() ([]string, error)
	Open          PortOpener
	BaudRates     []int
	Timeout       time.Duration
	SearchTimeout time.Duration
	ResetDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		ListPorts:     listPorts,
		Open:          openPort,
		BaudRates:     []int{38400, 9600, 115200, 230400},
		Timeout:       DefaultTimeout,
		SearchTimeout: DefaultSearchTimeout,
		ResetDelay:    DefaultResetDelay,
	}
}

// Connector returns an obd.Connector backed by serial auto-detection.
func Connector() obd.Connector {
	return func(ctx context.Context) (obd.Connection, error) {
		return Connect(ctx, DefaultConfig())
	}
}

func openPort(name string, baud int) (Port, error) {
	cfg := &serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Conn is an ELM327 session over a serial port.
type Conn struct {
	port    Port
	info    obd.AdapterInfo
	timeout time.Duration
	closed  bool

	mu sync.Mutex
}

var _ obd.Connection = (*Conn)(nil)

func (c *Conn) Info() obd.AdapterInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Query sends one PID request and decodes the reply.
func (c *Conn) Query(ctx context.Context, cmd obd.Command) (obd.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return obd.Response{Command: cmd}, obd.ErrClosed
	}

	raw, err := c.exchange(ctx, cmd.String(), c.timeout)
	if err != nil {
		return obd.Response{Command: cmd, Raw: raw}, fmt.Errorf("query %s: %w", cmd.Name, err)
	}

	resp := obd.ParseResponse(cmd, raw)
	if resp.IsNull() {
		log.Debug("no value in reply", zap.String("command", cmd.Name), zap.String("raw", raw))
	}
	return resp, nil
}

// TroubleCodes queries stored DTCs (mode 03).
func (c *Conn) TroubleCodes(ctx context.Context) ([]models.DTCEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, obd.ErrClosed
	}

	raw, err := c.exchange(ctx, obd.GetDTC.String(), c.timeout*3)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", obd.GetDTC.Name, err)
	}
	log.Debug("DTC reply", zap.String("raw", raw))
	if obd.IsNoData(raw) {
		return nil, nil
	}
	return obd.ParseTroubleCodes(raw, isCAN(c.info.Protocol)), nil
}

// Close puts the adapter in low power mode and releases the port. It is safe
// to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := c.exchange(ctx, CommandLowPower, 500*time.Millisecond); err != nil {
		log.Debug("low power command failed", zap.Error(err))
	}

	if err := c.port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c.info.Port, err)
	}
	log.Info("adapter released", zap.String("port", c.info.Port))
	return nil
}

// exchange writes cmd and reads the reply up to the prompt. Callers hold mu
// or own the Conn exclusively.
func (c *Conn) exchange(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	if err := c.sendCommand(cmd); err != nil {
		return "", err
	}
	return readELMResponse(ctx, c.port, timeout)
}

func (c *Conn) sendCommand(cmd string) error {
	if c.port == nil {
		return errors.New("cannot send command: port is nil")
	}

	// drop anything left over from an earlier, timed out reply
	if err := c.port.Flush(); err != nil {
		log.Debug("flush failed", zap.Error(err))
	}

	full := cmd + CR
	n, err := c.port.Write([]byte(full))
	if err != nil {
		return fmt.Errorf("write %q: %w", cmd, err)
	}
	if n != len(full) {
		return fmt.Errorf("write %q: incomplete write %d/%d bytes", cmd, n, len(full))
	}

	log.Debug("command sent", zap.String("command", cmd))
	return nil
}

// readELMResponse collects bytes until the ELM327 prompt '>' is seen, the
// timeout elapses or ctx is done. The prompt and control characters other
// than CR/LF are dropped.
func readELMResponse(ctx context.Context, r io.Reader, timeout time.Duration) (string, error) {
	var sb strings.Builder
	buffer := make([]byte, 64)
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return strings.TrimSpace(sb.String()), err
		}
		if time.Now().After(deadline) {
			return strings.TrimSpace(sb.String()), fmt.Errorf("%w after %v", obd.ErrTimeout, timeout)
		}

		n, err := r.Read(buffer)
		for _, b := range buffer[:n] {
			if b == '>' {
				result := strings.TrimSpace(sb.String())
				log.Debug("complete response received", zap.String("response", result))
				return result, nil
			}
			if b >= 32 && b <= 126 || b == '\r' || b == '\n' {
				sb.WriteByte(b)
			}
		}

		if err != nil && !errors.Is(err, io.EOF) {
			return strings.TrimSpace(sb.String()), err
		}
		if n == 0 {
			time.Sleep(readPause)
		}
	}
}
