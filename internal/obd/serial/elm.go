package serial

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"obdboard/internal/obd"
	"obdboard/pkg/log"

	"go.uber.org/zap"
)

const (
	CommandReset           = "ATZ"
	CommandEchoOff         = "ATE0"
	CommandLineFeedsOff    = "ATL0"
	CommandHeadersOff      = "ATH0"
	CommandSpacesOff       = "ATS0"
	CommandSetProtocolAuto = "ATSP0"
	CommandTryProtocol     = "ATTP"
	CommandLowPower        = "ATLP"
	CommandProtocolNum     = "ATDPN"
	CommandReadVoltage     = "ATRV"

	CR = "\r"

	// Supported protocol IDs
	ProtocolAuto          = "0" // Automatic mode
	ProtocolJ1850PWM      = "1" // SAE J1850 PWM
	ProtocolJ1850VPW      = "2" // SAE J1850 VPW
	ProtocolISO9141       = "3" // ISO 9141-2
	ProtocolISO14230_5    = "4" // ISO 14230-4 (KWP 5BAUD)
	ProtocolISO14230      = "5" // ISO 14230-4 (KWP FAST)
	ProtocolISO15765_11   = "6" // ISO 15765-4 (CAN 11/500)
	ProtocolISO15765_29   = "7" // ISO 15765-4 (CAN 29/500)
	ProtocolISO15765_11_2 = "8" // ISO 15765-4 (CAN 11/250)
	ProtocolISO15765_29_2 = "9" // ISO 15765-4 (CAN 29/250)
	ProtocolSAEJ1939      = "A" // SAE J1939 (CAN 29/250)
)

// fallbackProtocols are tried in order of likelihood when automatic
// detection gets no answer from the vehicle.
var fallbackProtocols = []string{
	ProtocolISO15765_11,
	ProtocolISO15765_11_2,
	ProtocolJ1850PWM,
	ProtocolISO9141,
	ProtocolISO14230,
}

var protocolNames = map[string]string{
	ProtocolAuto:          "Auto",
	ProtocolJ1850PWM:      "SAE J1850 PWM (41.6 kbaud)",
	ProtocolJ1850VPW:      "SAE J1850 VPW (10.4 kbaud)",
	ProtocolISO9141:       "ISO 9141-2 (5 baud init)",
	ProtocolISO14230_5:    "ISO 14230-4 KWP (5 baud init)",
	ProtocolISO14230:      "ISO 14230-4 KWP (fast init)",
	ProtocolISO15765_11:   "ISO 15765-4 CAN (11 bit ID, 500 kbaud)",
	ProtocolISO15765_29:   "ISO 15765-4 CAN (29 bit ID, 500 kbaud)",
	ProtocolISO15765_11_2: "ISO 15765-4 CAN (11 bit ID, 250 kbaud)",
	ProtocolISO15765_29_2: "ISO 15765-4 CAN (29 bit ID, 250 kbaud)",
	ProtocolSAEJ1939:      "SAE J1939 CAN (29 bit ID, 250 kbaud)",
}

// protocolName returns the human-readable name of an ATDPN reply. A leading
// "A" means the protocol was found automatically.
func protocolName(protocol string) string {
	if name, ok := protocolNames[normalizeProtocol(protocol)]; ok {
		return name
	}
	return "Unknown"
}

func normalizeProtocol(protocol string) string {
	p := strings.ToUpper(strings.TrimSpace(protocol))
	if len(p) == 2 && p[0] == 'A' {
		p = p[1:]
	}
	return p
}

func isCAN(protocol string) bool {
	switch normalizeProtocol(protocol) {
	case ProtocolISO15765_11, ProtocolISO15765_29, ProtocolISO15765_11_2, ProtocolISO15765_29_2:
		return true
	}
	return false
}

// dial opens name at baud and runs the ELM327 handshake. The port is closed
// again when the handshake fails.
func dial(ctx context.Context, cfg Config, name string, baud int) (*Conn, error) {
	p, err := cfg.Open(name, baud)
	if err != nil {
		return nil, &openError{port: name, err: err}
	}

	c := &Conn{
		port:    p,
		timeout: cfg.Timeout,
		info:    obd.AdapterInfo{Port: name, Baud: baud},
	}
	if err := c.initELM327(ctx, cfg); err != nil {
		_ = p.Close()
		return nil, err
	}
	return c, nil
}

func (c *Conn) initELM327(ctx context.Context, cfg Config) error {
	if err := c.sendCommand(CommandReset); err != nil {
		return err
	}
	if err := sleep(ctx, cfg.ResetDelay); err != nil {
		return err
	}

	resp, err := readELMResponse(ctx, c.port, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	version := elmVersion(resp)
	if version == "" {
		return fmt.Errorf("no ELM327 identifier in %q", resp)
	}
	c.info.Version = version
	log.Debug("reset successful", zap.String("response", resp))

	commands := []string{
		CommandEchoOff,
		CommandLineFeedsOff,
		CommandSpacesOff,
		CommandHeadersOff,
		CommandSetProtocolAuto,
	}
	for _, cmd := range commands {
		resp, err := c.exchange(ctx, cmd, cfg.Timeout)
		if err != nil {
			return fmt.Errorf("command %s: %w", cmd, err)
		}
		if !strings.Contains(strings.ToUpper(resp), "OK") {
			log.Warn("unexpected reply to setup command", zap.String("command", cmd), zap.String("response", resp))
		}
	}

	c.info.VehicleResponding = c.checkVehicle(ctx, cfg)
	if err := ctx.Err(); err != nil {
		return err
	}

	if resp, err := c.exchange(ctx, CommandProtocolNum, cfg.Timeout); err == nil {
		c.info.Protocol = normalizeProtocol(resp)
		c.info.ProtocolName = protocolName(resp)
	}
	if resp, err := c.exchange(ctx, CommandReadVoltage, cfg.Timeout); err == nil {
		if v, err := parseVoltage(resp); err == nil {
			c.info.Voltage = v
		}
	}

	log.Info("ELM327 initialization completed",
		zap.String("port", c.info.Port),
		zap.Int("baud", c.info.Baud),
		zap.String("version", c.info.Version),
		zap.String("protocol", c.info.ProtocolName),
		zap.Bool("vehicle", c.info.VehicleResponding))
	return nil
}

// checkVehicle asks for the supported PIDs, which makes the adapter search
// for a protocol. When automatic search fails the fallback protocols are
// tried one by one before automatic mode is restored.
func (c *Conn) checkVehicle(ctx context.Context, cfg Config) bool {
	if c.pidsAnswered(ctx, cfg) {
		return true
	}
	log.Warn("auto protocol detection failed, trying specific protocols")

	for _, protocol := range fallbackProtocols {
		if ctx.Err() != nil {
			return false
		}
		if _, err := c.exchange(ctx, CommandTryProtocol+protocol, cfg.Timeout); err != nil {
			continue
		}
		if c.pidsAnswered(ctx, cfg) {
			log.Info("connected using protocol", zap.String("protocol", protocolName(protocol)))
			return true
		}
	}

	if _, err := c.exchange(ctx, CommandSetProtocolAuto, cfg.Timeout); err != nil {
		log.Warn("failed to restore automatic protocol", zap.Error(err))
	}
	return false
}

func (c *Conn) pidsAnswered(ctx context.Context, cfg Config) bool {
	resp, err := c.exchange(ctx, obd.PIDsA.String(), cfg.SearchTimeout)
	if err != nil {
		log.Debug("supported PIDs query failed", zap.Error(err))
		return false
	}
	return !obd.IsNoData(resp) && strings.Contains(strings.ReplaceAll(strings.ToUpper(resp), " ", ""), "4100")
}

// elmVersion extracts the identifier line, e.g. "ELM327 v1.5".
func elmVersion(resp string) string {
	for _, line := range strings.FieldsFunc(resp, func(r rune) bool { return r == '\r' || r == '\n' }) {
		if strings.Contains(strings.ToUpper(line), "ELM") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// parseVoltage attempts to parse an ELM voltage response like "12.5V" into a float
func parseVoltage(response string) (float64, error) {
	response = strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(response)), "V"))
	return strconv.ParseFloat(response, 64)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
