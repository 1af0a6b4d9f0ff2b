package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "rcad", "test", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("deployment ready", "shields", 2)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "rcad", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "deployment ready", line["message"])
	require.Contains(t, line, "timestamp")
	require.EqualValues(t, 2, line["shields"])
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("passphrase", "hunter2").Value.String())
	require.Equal(t, "0xabc", MaskField("signer", "0xabc").Value.String())
	require.Equal(t, "", MaskField("privateKey", "").Value.String())
	require.Contains(t, RedactionAllowlist(), "shield")
	require.True(t, IsAllowlisted(" Shield "))
}

func TestMaskAddress(t *testing.T) {
	require.Equal(t, "0x000000a1…", MaskAddress("user", "0x000000a11c00000000000000000000000000a11c").Value.String())
	require.Equal(t, "0x000000a11c00000000000000000000000000a11c", MaskAddress("shield", "0x000000a11c00000000000000000000000000a11c").Value.String())
	require.Equal(t, RedactedValue, MaskAddress("user", "0xabc").Value.String())
	require.True(t, slices.IsSorted(RedactionAllowlist()))
}
