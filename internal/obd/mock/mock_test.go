package mock

import (
	"context"
	"testing"

	"obdboard/internal/obd"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryValues(t *testing.T) {
	t.Parallel()

	m := New(WithSeed(1))
	ctx := context.Background()

	for _, cmd := range []obd.Command{
		obd.Speed, obd.RPM, obd.FuelLevel, obd.CoolantTemp, obd.EngineLoad,
		obd.ThrottlePos, obd.IntakeTemp, obd.DistanceDTCClear, obd.RunTime,
	} {
		resp, err := m.Query(ctx, cmd)
		require.NoError(t, err, cmd.Name)
		require.False(t, resp.IsNull(), cmd.Name)
	}

	resp, err := m.Query(ctx, obd.RPM)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.Value.RPM(), 600.0)
	assert.LessOrEqual(t, resp.Value.RPM(), 4000.0)

	resp, err = m.Query(ctx, obd.CoolantTemp)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.Value.Celsius(), 60.0)
	assert.LessOrEqual(t, resp.Value.Celsius(), 110.0)
}

func TestQueryAbsent(t *testing.T) {
	t.Parallel()

	m := New(WithAbsent(obd.RPM, obd.FuelLevel))

	resp, err := m.Query(context.Background(), obd.RPM)
	require.NoError(t, err)
	assert.True(t, resp.IsNull())
	assert.Equal(t, "NO DATA", resp.Raw)

	resp, err = m.Query(context.Background(), obd.Speed)
	require.NoError(t, err)
	assert.False(t, resp.IsNull())
}

func TestClose(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, m.Close())

	_, err := m.Query(context.Background(), obd.Speed)
	require.ErrorIs(t, err, obd.ErrClosed)
	_, err = m.TroubleCodes(context.Background())
	require.ErrorIs(t, err, obd.ErrClosed)
}

func TestConnector(t *testing.T) {
	t.Parallel()

	conn, err := Connector(WithSeed(2))(context.Background())
	require.NoError(t, err)
	assert.True(t, conn.Info().VehicleResponding)
	assert.Equal(t, "mock", conn.Info().Port)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Connector()(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTroubleCodesCopy(t *testing.T) {
	t.Parallel()

	m := New(WithSeed(3))
	for i := 0; i < 20; i++ {
		_, err := m.TroubleCodes(context.Background())
		require.NoError(t, err)
	}
	codes, err := m.TroubleCodes(context.Background())
	require.NoError(t, err)
	if len(codes) > 0 {
		codes[0].Code = "X"
		again, err := m.TroubleCodes(context.Background())
		require.NoError(t, err)
		for _, c := range again {
			assert.NotEqual(t, "X", c.Code)
		}
	}
}
