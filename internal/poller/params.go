package poller

import (
	"math"
	"strconv"

	"obdboard/internal/models"
	"obdboard/internal/obd"
)

// NotAvailable is shown in place of a value the adapter did not provide.
const NotAvailable = "N/A"

// Key identifies a dashboard card.
type Key string

const (
	KeySpeed         Key = "speed"
	KeyRPM           Key = "rpm"
	KeyFuelLevel     Key = "fuel_level"
	KeyCoolantTemp   Key = "coolant_temp"
	KeyEngineLoad    Key = "engine_load"
	KeyThrottlePos   Key = "throttle_pos"
	KeyIntakeTemp    Key = "intake_temp"
	KeyVehicleSpeed  Key = "vehicle_speed"
	KeyMileage       Key = "mileage"
	KeyEngineRuntime Key = "engine_runtime"
)

// Parameter binds a dashboard card to the command that feeds it and to the
// way its value is shown.
type Parameter struct {
	Key       Key
	Title     string
	Row, Col  int
	Command   obd.Command
	Unit      string
	Suffix    string
	Precision int

	value func(obd.Quantity) float64
}

// Parameters is the fixed card table, in grid order.
// Speed and Vehicle Speed both read SPEED (01 0D); they always agree.
var Parameters = []Parameter{
	{Key: KeySpeed, Title: "Speed", Row: 0, Col: 0, Command: obd.Speed, Unit: "mph", Suffix: " mph", value: obd.Quantity.MPH},
	{Key: KeyRPM, Title: "RPM", Row: 0, Col: 1, Command: obd.RPM, Unit: "rpm", Suffix: " RPM", value: obd.Quantity.RPM},
	{Key: KeyFuelLevel, Title: "Fuel Level", Row: 0, Col: 2, Command: obd.FuelLevel, Unit: "percent", Suffix: "%", Precision: 1, value: obd.Quantity.Percent},
	{Key: KeyCoolantTemp, Title: "Coolant Temp", Row: 1, Col: 0, Command: obd.CoolantTemp, Unit: "celsius", Suffix: "°C", value: obd.Quantity.Celsius},
	{Key: KeyEngineLoad, Title: "Engine Load", Row: 1, Col: 1, Command: obd.EngineLoad, Unit: "percent", Suffix: "%", Precision: 1, value: obd.Quantity.Percent},
	{Key: KeyThrottlePos, Title: "Throttle Position", Row: 1, Col: 2, Command: obd.ThrottlePos, Unit: "percent", Suffix: "%", Precision: 1, value: obd.Quantity.Percent},
	{Key: KeyIntakeTemp, Title: "Intake Temp", Row: 2, Col: 0, Command: obd.IntakeTemp, Unit: "celsius", Suffix: "°C", value: obd.Quantity.Celsius},
	{Key: KeyVehicleSpeed, Title: "Vehicle Speed", Row: 2, Col: 1, Command: obd.Speed, Unit: "mph", Suffix: " mph", value: obd.Quantity.MPH},
	{Key: KeyMileage, Title: "Mileage", Row: 2, Col: 2, Command: obd.DistanceDTCClear, Unit: "miles", Suffix: " miles", Precision: 1, value: obd.Quantity.Miles},
	{Key: KeyEngineRuntime, Title: "Engine Runtime", Row: 3, Col: 0, Command: obd.RunTime, Unit: "minutes", Suffix: " min", Precision: 1, value: obd.Quantity.Minutes},
}

// Value converts q to the parameter's display unit, rounded to its precision.
func (p Parameter) Value(q obd.Quantity) float64 {
	pow := math.Pow10(p.Precision)
	v := math.Round(p.value(q)*pow) / pow
	if v == 0 {
		// avoid "-0"
		return 0
	}
	return v
}

// Format renders q with the parameter's suffix, or N/A plus the suffix when
// q is nil: "65 mph", "N/A RPM", "42%".
func (p Parameter) Format(q *obd.Quantity) string {
	if q == nil {
		return NotAvailable + p.Suffix
	}
	return strconv.FormatFloat(p.Value(*q), 'f', -1, 64) + p.Suffix
}

// Reading is the tick record of the parameter for q.
func (p Parameter) Reading(q *obd.Quantity) models.Reading {
	r := models.Reading{
		Key:   string(p.Key),
		Title: p.Title,
		Text:  p.Format(q),
		Unit:  p.Unit,
	}
	if q != nil {
		v := p.Value(*q)
		r.Value = &v
	}
	return r
}

// ParameterByKey looks a parameter up in the fixed table.
func ParameterByKey(key Key) (Parameter, bool) {
	for _, p := range Parameters {
		if p.Key == key {
			return p, true
		}
	}
	return Parameter{}, false
}
