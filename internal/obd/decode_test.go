package obd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cmd  Command
		raw  string
		want float64
	}{
		{name: "rpm with spaces", cmd: RPM, raw: "41 0C 1A F8", want: 1726},
		{name: "rpm without spaces", cmd: RPM, raw: "410C1AF8\r\r", want: 1726},
		{name: "speed", cmd: Speed, raw: "410D41", want: 65},
		{name: "coolant", cmd: CoolantTemp, raw: "41 05 7B", want: 83},
		{name: "intake below zero", cmd: IntakeTemp, raw: "410F1E", want: -10},
		{name: "fuel level", cmd: FuelLevel, raw: "412FFF", want: 100},
		{name: "run time", cmd: RunTime, raw: "411F0258", want: 600},
		{name: "distance", cmd: DistanceDTCClear, raw: "41310100", want: 256},
		{name: "searching prefix", cmd: Speed, raw: "SEARCHING...\r410D20\r", want: 32},
		{name: "two ECUs answer", cmd: Speed, raw: "410D10\r410D11", want: 16},
		{name: "lower case", cmd: Speed, raw: "410d0a", want: 10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := ParseResponse(tt.cmd, tt.raw)
			require.False(t, resp.IsNull(), "expected a value for %q", tt.raw)
			assert.InDelta(t, tt.want, resp.Value.Magnitude, 0.001)
			assert.Equal(t, tt.raw, resp.Raw)
		})
	}
}

func TestParseResponseNull(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "NO DATA", "?", "UNABLE TO CONNECT", "410C1A", "410DZZ", "7F0112"} {
		resp := ParseResponse(Speed, raw)
		if raw == "410C1A" {
			resp = ParseResponse(RPM, raw)
		}
		assert.True(t, resp.IsNull(), "raw %q", raw)
	}

	assert.True(t, ParseResponse(PIDsA, "4100BE3EB811").IsNull(), "PIDS_A has no physical value")
}

func TestIsNoData(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNoData("NO DATA"))
	assert.True(t, IsNoData("SEARCHING...\rUNABLE TO CONNECT"))
	assert.False(t, IsNoData("410D41"))
}

func TestCommandString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "010D", Speed.String())
	assert.Equal(t, "03", GetDTC.String())
	assert.Equal(t, "410C", RPM.replyPrefix())
	assert.Equal(t, "43", GetDTC.replyPrefix())
}

func TestQuantityConversions(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 65.0, Quantity{Magnitude: 104.607, Unit: UnitKPH}.MPH(), 0.001)
	assert.InDelta(t, 100.0, Quantity{Magnitude: 160.9344, Unit: UnitKilometer}.Miles(), 0.0001)
	assert.InDelta(t, 2.5, Quantity{Magnitude: 150, Unit: UnitSecond}.Minutes(), 0.0001)
	assert.InDelta(t, 42.0, Quantity{Magnitude: 42, Unit: UnitPercent}.Percent(), 0)
	assert.InDelta(t, 90.0, Quantity{Magnitude: 90, Unit: UnitCelsius}.Celsius(), 0)
}
