package listeners

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/dispatch"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/testutil/testlog"
)

func TestFirmwarePolicy(t *testing.T) {
	testlog.Start(t)
	policy, err := NewFirmwarePolicy(">= 4.0.0")
	require.NoError(t, err)

	v, err := ParseFirmware(" v4.7.1 ")
	require.NoError(t, err)
	assert.True(t, policy.Allows(v))

	old, err := ParseFirmware("3.9.0")
	require.NoError(t, err)
	assert.False(t, policy.Allows(old))
	assert.False(t, policy.Allows(nil))

	open, err := NewFirmwarePolicy("")
	require.NoError(t, err)
	assert.True(t, open.Allows(nil))

	_, err = NewFirmwarePolicy(">= banana")
	assert.Error(t, err)
	_, err = ParseFirmware("HW_05")
	assert.Error(t, err)
}

func TestOnProductVersionParsesSoftware(t *testing.T) {
	testlog.Start(t)
	reg := dispatch.NewRegistry()
	d := dispatch.NewDispatcher(schema.Default(), reg)

	var got []ProductVersion
	OnProductVersion(reg, func(pv ProductVersion) { got = append(got, pv) })
	feed(t, d, ProductVersionChanged, protocol.NewString("4.7.1"), protocol.NewString("HW_05"))
	feed(t, d, ProductVersionChanged, protocol.NewString("dev-build"), protocol.NewString("HW_05"))

	require.Len(t, got, 2)
	require.NotNil(t, got[0].Version)
	assert.Equal(t, "4.7.1", got[0].Version.String())
	assert.Equal(t, "HW_05", got[0].Hardware)
	assert.Nil(t, got[1].Version)
	assert.Equal(t, "dev-build", got[1].Software)
}
