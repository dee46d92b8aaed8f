package obd

import (
	"context"
	"errors"
	"fmt"

	"obdboard/internal/models"
)

var (
	// ErrNoAdapter is returned when auto-detection finds no answering adapter.
	ErrNoAdapter = errors.New("no OBD adapter found")
	// ErrClosed is returned by queries on a released connection.
	ErrClosed = errors.New("connection closed")
	// ErrTimeout is returned when the adapter does not finish a reply in time.
	ErrTimeout = errors.New("adapter response timeout")
)

// Connection abstracts one open session with an OBD-II adapter.
// Queries are synchronous; a Connection has a single owner.
type Connection interface {
	// Query sends cmd and decodes the reply. An adapter that has no data for
	// cmd yields a Response with a nil Value and a nil error.
	Query(ctx context.Context, cmd Command) (Response, error)
	TroubleCodes(ctx context.Context) ([]models.DTCEntry, error)
	Info() AdapterInfo
	Close() error
}

// Connector opens a Connection, auto-detecting the adapter.
type Connector func(ctx context.Context) (Connection, error)

// AdapterInfo describes what the handshake found.
type AdapterInfo struct {
	Port              string
	Baud              int
	Version           string
	Protocol          string
	ProtocolName      string
	Voltage           float64
	VehicleResponding bool
}

func (i AdapterInfo) String() string {
	s := i.Version
	if s == "" {
		s = "adapter"
	}
	if i.Port != "" {
		s += fmt.Sprintf(" on %s", i.Port)
	}
	if i.Baud > 0 {
		s += fmt.Sprintf(" @%d", i.Baud)
	}
	if i.ProtocolName != "" {
		s += " | " + i.ProtocolName
	}
	if i.Voltage > 0 {
		s += fmt.Sprintf(" | %.1fV", i.Voltage)
	}
	if !i.VehicleResponding {
		s += " | vehicle not responding"
	}
	return s
}
