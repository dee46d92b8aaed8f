package console

import (
	"bytes"
	"context"
	"testing"

	"obdboard/internal/models"
	"obdboard/internal/poller"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishLine(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	speed := 65.0
	err := c.Publish(context.Background(), []models.Reading{
		{Key: "speed", Title: "Speed", Text: "65 mph", Value: &speed, Unit: "mph"},
		{Key: "rpm", Title: "RPM", Text: "N/A RPM", Unit: "rpm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Speed: 65 mph | RPM: N/A RPM\n", buf.String())
}

func TestStatusPrintedOnChange(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.SetStatus(poller.StatusConnecting)
	c.SetStatus(poller.StatusConnecting)
	c.SetStatus(poller.StatusStopped)
	assert.Equal(t, "Status: Connecting...\nStatus: Stopped\n", buf.String())
}

func TestTroubleCodes(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.SetTroubleCodes(nil)
	c.SetTroubleCodes([]models.DTCEntry{{Code: "P0420", Description: "Catalyst System Efficiency Below Threshold (Bank 1)"}})
	assert.Equal(t, "No trouble codes.\nTrouble codes:\n- P0420: Catalyst System Efficiency Below Threshold (Bank 1)\n", buf.String())
}

func TestRunning(t *testing.T) {
	c := New(&bytes.Buffer{})

	assert.False(t, c.Running())
	c.SetRunning(true)
	assert.True(t, c.Running())
	c.SetCard(poller.KeySpeed, "65 mph")
}
