package serial

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"obdboard/internal/obd"
	"obdboard/pkg/log"

	bugst "go.bug.st/serial"
	"go.uber.org/zap"
)

// Connect walks the candidate ports and baud rates until an adapter answers
// the handshake. It returns obd.ErrNoAdapter when none does.
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	ports, err := cfg.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	ports = candidates(ports)
	log.Info("searching for OBD adapter", zap.Strings("ports", ports))

	for _, name := range ports {
		for _, baud := range cfg.BaudRates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			c, err := dial(ctx, cfg, name, baud)
			if err == nil {
				return c, nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Debug("no adapter", zap.String("port", name), zap.Int("baud", baud), zap.Error(err))

			var openErr *openError
			if errors.As(err, &openErr) {
				// the port itself is unusable, other baud rates will not help
				break
			}
		}
	}
	return nil, obd.ErrNoAdapter
}

type openError struct {
	port string
	err  error
}

func (e *openError) Error() string {
	return fmt.Sprintf("open %s: %v", e.port, e.err)
}

func (e *openError) Unwrap() error {
	return e.err
}

func listPorts() ([]string, error) {
	return bugst.GetPortsList()
}

// candidates orders ports so Bluetooth and USB serial adapters are tried
// before built-in UARTs.
func candidates(ports []string) []string {
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return portRank(out[i]) < portRank(out[j])
	})
	return out
}

func portRank(port string) int {
	base := strings.ToLower(filepath.Base(port))
	switch {
	case strings.HasPrefix(base, "rfcomm"):
		return 0
	case strings.HasPrefix(base, "ttyusb"), strings.HasPrefix(base, "ttyacm"),
		strings.Contains(base, "usbserial"), strings.Contains(base, "obd"):
		return 1
	case strings.HasPrefix(base, "com"):
		return 2
	default:
		return 3
	}
}
