package obd

import "fmt"

// Command is one OBD-II request. Mode and Code are the hex strings sent on
// the wire; Bytes is the number of data bytes in the reply.
type Command struct {
	Name  string
	Mode  string
	Code  string
	Bytes int
	Desc  string

	decode func(data []byte) *Quantity
}

var (
	PIDsA            = Command{Name: "PIDS_A", Mode: "01", Code: "00", Bytes: 4, Desc: "Supported PIDs [01-20]"}
	EngineLoad       = Command{Name: "ENGINE_LOAD", Mode: "01", Code: "04", Bytes: 1, Desc: "Calculated Engine Load", decode: percent}
	CoolantTemp      = Command{Name: "COOLANT_TEMP", Mode: "01", Code: "05", Bytes: 1, Desc: "Engine Coolant Temperature", decode: temperature}
	RPM              = Command{Name: "RPM", Mode: "01", Code: "0C", Bytes: 2, Desc: "Engine RPM", decode: rpm}
	Speed            = Command{Name: "SPEED", Mode: "01", Code: "0D", Bytes: 1, Desc: "Vehicle Speed", decode: speed}
	IntakeTemp       = Command{Name: "INTAKE_TEMP", Mode: "01", Code: "0F", Bytes: 1, Desc: "Intake Air Temp", decode: temperature}
	ThrottlePos      = Command{Name: "THROTTLE_POS", Mode: "01", Code: "11", Bytes: 1, Desc: "Throttle Position", decode: percent}
	RunTime          = Command{Name: "RUN_TIME", Mode: "01", Code: "1F", Bytes: 2, Desc: "Engine Run Time", decode: seconds}
	FuelLevel        = Command{Name: "FUEL_LEVEL", Mode: "01", Code: "2F", Bytes: 1, Desc: "Fuel Level Input", decode: percent}
	DistanceDTCClear = Command{Name: "DISTANCE_SINCE_DTC_CLEAR", Mode: "01", Code: "31", Bytes: 2, Desc: "Distance traveled since codes cleared", decode: kilometers}
	GetDTC           = Command{Name: "GET_DTC", Mode: "03", Desc: "Get DTCs"}
)

func (c Command) String() string {
	return fmt.Sprintf("%s%s", c.Mode, c.Code)
}

// replyPrefix is the hex text a positive reply starts with, e.g. "410D".
func (c Command) replyPrefix() string {
	var mode byte
	_, _ = fmt.Sscanf(c.Mode, "%02X", &mode)
	return fmt.Sprintf("%02X%s", mode+0x40, c.Code)
}

func percent(d []byte) *Quantity {
	return &Quantity{Magnitude: float64(d[0]) * 100 / 255, Unit: UnitPercent}
}

// A - 40
func temperature(d []byte) *Quantity {
	return &Quantity{Magnitude: float64(int(d[0]) - 40), Unit: UnitCelsius}
}

// ((A*256)+B)/4
func rpm(d []byte) *Quantity {
	return &Quantity{Magnitude: float64(int(d[0])*256+int(d[1])) / 4, Unit: UnitRPM}
}

func speed(d []byte) *Quantity {
	return &Quantity{Magnitude: float64(d[0]), Unit: UnitKPH}
}

func seconds(d []byte) *Quantity {
	return &Quantity{Magnitude: float64(int(d[0])*256 + int(d[1])), Unit: UnitSecond}
}

func kilometers(d []byte) *Quantity {
	return &Quantity{Magnitude: float64(int(d[0])*256 + int(d[1])), Unit: UnitKilometer}
}
