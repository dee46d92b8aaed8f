package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"obdboard/internal/models"
	"obdboard/internal/obd"
)

// MockOBD simulates an adapter on an idling-to-cruising car. Values follow a
// bounded random walk and every reply goes through the real ELM327 decoder.
type MockOBD struct {
	mu      sync.Mutex
	rng     *rand.Rand
	closed  bool
	started time.Time
	absent  map[string]bool

	// simulated values, in the units the vehicle reports
	speed    float64
	rpm      float64
	fuel     float64
	coolant  float64
	load     float64
	throttle float64
	intake   float64
	distance float64
	errors   []models.DTCEntry
}

type Option func(*MockOBD)

// WithAbsent makes the simulated vehicle answer NO DATA to cmds.
func WithAbsent(cmds ...obd.Command) Option {
	return func(m *MockOBD) {
		for _, c := range cmds {
			m.absent[c.String()] = true
		}
	}
}

func WithSeed(seed int64) Option {
	return func(m *MockOBD) {
		m.rng = rand.New(rand.NewSource(seed))
	}
}

func New(opts ...Option) *MockOBD {
	m := &MockOBD{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		started:  time.Now(),
		absent:   map[string]bool{},
		speed:    0,
		rpm:      800,
		fuel:     62,
		coolant:  75,
		load:     20,
		throttle: 15,
		intake:   25,
		distance: 1520,
		errors:   []models.DTCEntry{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connector returns a connector handing out a fresh simulated adapter.
func Connector(opts ...Option) obd.Connector {
	return func(ctx context.Context) (obd.Connection, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return New(opts...), nil
	}
}

func (m *MockOBD) Info() obd.AdapterInfo {
	return obd.AdapterInfo{
		Port:              "mock",
		Version:           "ELM327 v1.5 (simulated)",
		Protocol:          "6",
		ProtocolName:      "ISO 15765-4 CAN (11 bit ID, 500 kbaud)",
		Voltage:           12.6,
		VehicleResponding: true,
	}
}

func (m *MockOBD) Query(ctx context.Context, cmd obd.Command) (obd.Response, error) {
	if err := ctx.Err(); err != nil {
		return obd.Response{Command: cmd}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return obd.Response{Command: cmd}, obd.ErrClosed
	}
	if m.absent[cmd.String()] {
		return obd.ParseResponse(cmd, "NO DATA"), nil
	}

	m.step()
	return obd.ParseResponse(cmd, m.reply(cmd)), nil
}

func (m *MockOBD) TroubleCodes(ctx context.Context) ([]models.DTCEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, obd.ErrClosed
	}

	// randomly add/remove an error
	if m.rng.Float32() < 0.3 {
		code := fmt.Sprintf("P%04d", m.rng.Intn(500))
		m.errors = append(m.errors, models.DTCEntry{Code: code, Description: obd.DescribeDTC(code)})
	}
	if len(m.errors) > 0 && m.rng.Float32() < 0.1 {
		m.errors = m.errors[1:]
	}

	copyErr := make([]models.DTCEntry, len(m.errors))
	copy(copyErr, m.errors)
	return copyErr, nil
}

func (m *MockOBD) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// step advances the random walk. Callers hold mu.
func (m *MockOBD) step() {
	m.throttle = clamp(m.throttle+float64(m.rng.Intn(11)-5), 0, 100)
	m.rpm = clamp(m.rpm+float64(m.rng.Intn(201)-100)+m.throttle, 600, 4000)
	m.speed = clamp(m.speed+float64(m.rng.Intn(5)-2), 0, 180)
	m.load = clamp(m.throttle*0.8+float64(m.rng.Intn(11)), 0, 100)
	m.coolant = clamp(m.coolant+float64(m.rng.Intn(21)-10)*0.1, 60, 110)
	m.intake = clamp(m.intake+float64(m.rng.Intn(3)-1), -20, 60)
	m.fuel = clamp(m.fuel-0.01, 0, 100)
	m.distance += m.speed / 3600
}

// reply encodes the current value the way an ELM327 prints it with spaces
// and headers off.
func (m *MockOBD) reply(cmd obd.Command) string {
	prefix := fmt.Sprintf("41%s", cmd.Code)
	switch cmd.Name {
	case obd.Speed.Name:
		return prefix + byteHex(m.speed)
	case obd.RPM.Name:
		return prefix + wordHex(m.rpm*4)
	case obd.FuelLevel.Name:
		return prefix + byteHex(m.fuel*255/100)
	case obd.CoolantTemp.Name:
		return prefix + byteHex(m.coolant+40)
	case obd.EngineLoad.Name:
		return prefix + byteHex(m.load*255/100)
	case obd.ThrottlePos.Name:
		return prefix + byteHex(m.throttle*255/100)
	case obd.IntakeTemp.Name:
		return prefix + byteHex(m.intake+40)
	case obd.DistanceDTCClear.Name:
		return prefix + wordHex(m.distance)
	case obd.RunTime.Name:
		return prefix + wordHex(time.Since(m.started).Seconds())
	case obd.PIDsA.Name:
		return prefix + "BE3EB811"
	}
	return "NO DATA"
}

func byteHex(v float64) string {
	return fmt.Sprintf("%02X", uint8(clamp(v+0.5, 0, 255)))
}

func wordHex(v float64) string {
	return fmt.Sprintf("%04X", uint16(clamp(v+0.5, 0, 65535)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
