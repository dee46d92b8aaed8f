package poller

import (
	"testing"

	"obdboard/internal/obd"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterTable(t *testing.T) {
	t.Parallel()

	require.Len(t, Parameters, 10)

	seen := map[Key]bool{}
	cells := map[[2]int]bool{}
	for _, p := range Parameters {
		assert.False(t, seen[p.Key], "duplicate key %s", p.Key)
		seen[p.Key] = true

		cell := [2]int{p.Row, p.Col}
		assert.False(t, cells[cell], "two cards at %v", cell)
		cells[cell] = true
		assert.Less(t, p.Row, 4)
		assert.Less(t, p.Col, 3)
	}

	speed, ok := ParameterByKey(KeySpeed)
	require.True(t, ok)
	vehicleSpeed, ok := ParameterByKey(KeyVehicleSpeed)
	require.True(t, ok)
	assert.Equal(t, speed.Command, vehicleSpeed.Command)

	_, ok = ParameterByKey("oil_temp")
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  Key
		q    *obd.Quantity
		want string
	}{
		{KeySpeed, &obd.Quantity{Magnitude: 104.607, Unit: obd.UnitKPH}, "65 mph"},
		{KeySpeed, &obd.Quantity{Magnitude: 0, Unit: obd.UnitKPH}, "0 mph"},
		{KeyRPM, nil, "N/A RPM"},
		{KeyRPM, &obd.Quantity{Magnitude: 1726.25, Unit: obd.UnitRPM}, "1726 RPM"},
		{KeyFuelLevel, &obd.Quantity{Magnitude: 107.0 * 100 / 255, Unit: obd.UnitPercent}, "42%"},
		{KeyFuelLevel, nil, "N/A%"},
		{KeyThrottlePos, &obd.Quantity{Magnitude: 14.5098, Unit: obd.UnitPercent}, "14.5%"},
		{KeyCoolantTemp, &obd.Quantity{Magnitude: -5, Unit: obd.UnitCelsius}, "-5°C"},
		{KeyIntakeTemp, nil, "N/A°C"},
		{KeyMileage, nil, "N/A miles"},
		{KeyEngineRuntime, &obd.Quantity{Magnitude: 90, Unit: obd.UnitSecond}, "1.5 min"},
		{KeyEngineRuntime, nil, "N/A min"},
	}

	for _, tt := range tests {
		p, ok := ParameterByKey(tt.key)
		require.True(t, ok)
		assert.Equal(t, tt.want, p.Format(tt.q), "%s", tt.key)
	}
}

func TestReading(t *testing.T) {
	t.Parallel()

	p, _ := ParameterByKey(KeyCoolantTemp)

	r := p.Reading(&obd.Quantity{Magnitude: 83, Unit: obd.UnitCelsius})
	assert.Equal(t, "coolant_temp", r.Key)
	assert.Equal(t, "Coolant Temp", r.Title)
	assert.Equal(t, "83°C", r.Text)
	assert.Equal(t, "celsius", r.Unit)
	require.NotNil(t, r.Value)
	assert.InDelta(t, 83.0, *r.Value, 0)

	r = p.Reading(nil)
	assert.Equal(t, "N/A°C", r.Text)
	assert.Nil(t, r.Value)
}
