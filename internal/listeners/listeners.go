// Package listeners adapts typed callbacks to dispatch listeners for the
// commands applications subscribe to most.
package listeners

import (
	"fmt"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/dispatch"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
)

var (
	BatteryStateChanged     = mustID("common", "CommonState", "BatteryStateChanged")
	CountryListKnown        = mustID("common", "CommonState", "CountryListKnown")
	ProductVersionChanged   = mustID("common", "SettingsState", "ProductVersionChanged")
	FlyingStateChanged      = mustID("ardrone3", "PilotingState", "FlyingStateChanged")
	PositionChanged         = mustID("ardrone3", "PilotingState", "PositionChanged")
	AttitudeChanged         = mustID("ardrone3", "PilotingState", "AttitudeChanged")
	WifiScanListChanged     = mustID("ardrone3", "NetworkState", "WifiScanListChanged")
	MagnetoAxisStateChanged = mustID("minidrone", "SensorsState", "MagnetoAxisStateChanged")
)

func mustID(project, class, command string) protocol.CommandID {
	id, ok := schema.Default().LookupByName(project, class, command)
	if !ok {
		panic(fmt.Sprintf("listeners: %s.%s.%s missing from default table", project, class, command))
	}
	return id
}

// FlyingState is ardrone3.PilotingState.FlyingStateChanged.state.
type FlyingState int32

const (
	FlyingStateUnknown FlyingState = -1
	FlyingStateLanded  FlyingState = iota - 1
	FlyingStateTakingOff
	FlyingStateHovering
	FlyingStateFlying
	FlyingStateLanding
	FlyingStateEmergency
	FlyingStateUserTakeOff
	FlyingStateMotorRamping
	FlyingStateEmergencyLanding
)

func (s FlyingState) String() string {
	return schema.EnumFlyingState.Label(int32(s))
}

// WifiBand is ardrone3.NetworkState.WifiScanListChanged.band.
type WifiBand int32

const (
	WifiBandUnknown WifiBand = -1
	WifiBand2_4GHz  WifiBand = 0
	WifiBand5GHz    WifiBand = 1
)

func (b WifiBand) String() string {
	return schema.EnumWifiBand.Label(int32(b))
}

func OnBatteryStateChanged(reg *dispatch.Registry, fn func(percent uint8)) dispatch.Token {
	return reg.Register(BatteryStateChanged, dispatch.ListenerFunc(func(cmd *protocol.Command) error {
		fn(cmd.Args[0].U8())
		return nil
	}))
}

func OnFlyingStateChanged(reg *dispatch.Registry, fn func(state FlyingState)) dispatch.Token {
	return reg.Register(FlyingStateChanged, dispatch.ListenerFunc(func(cmd *protocol.Command) error {
		fn(FlyingState(cmd.Args[0].Enum()))
		return nil
	}))
}

func OnPositionChanged(reg *dispatch.Registry, fn func(latitude, longitude, altitude float64)) dispatch.Token {
	return reg.Register(PositionChanged, dispatch.ListenerFunc(func(cmd *protocol.Command) error {
		fn(cmd.Args[0].Float64(), cmd.Args[1].Float64(), cmd.Args[2].Float64())
		return nil
	}))
}

func OnAttitudeChanged(reg *dispatch.Registry, fn func(roll, pitch, yaw float32)) dispatch.Token {
	return reg.Register(AttitudeChanged, dispatch.ListenerFunc(func(cmd *protocol.Command) error {
		fn(cmd.Args[0].Float32(), cmd.Args[1].Float32(), cmd.Args[2].Float32())
		return nil
	}))
}

func OnMagnetoAxisStateChanged(reg *dispatch.Registry, fn func(status, x, y, z uint8)) dispatch.Token {
	return reg.Register(MagnetoAxisStateChanged, dispatch.ListenerFunc(func(cmd *protocol.Command) error {
		fn(cmd.Args[0].U8(), cmd.Args[1].U8(), cmd.Args[2].U8(), cmd.Args[3].U8())
		return nil
	}))
}

func OnWifiScanListChanged(reg *dispatch.Registry, fn func(ssid string, rssi int16, band WifiBand, channel uint8)) dispatch.Token {
	return reg.Register(WifiScanListChanged, dispatch.ListenerFunc(func(cmd *protocol.Command) error {
		fn(cmd.Args[0].Text(), cmd.Args[1].I16(), WifiBand(cmd.Args[2].Enum()), cmd.Args[3].U8())
		return nil
	}))
}

func OnProductVersionChanged(reg *dispatch.Registry, fn func(software, hardware string)) dispatch.Token {
	return reg.Register(ProductVersionChanged, dispatch.ListenerFunc(func(cmd *protocol.Command) error {
		fn(cmd.Args[0].Text(), cmd.Args[1].Text())
		return nil
	}))
}

// OnCountryListKnown delivers raw list entries in wire order.
func OnCountryListKnown(reg *dispatch.Registry, fn func(flags protocol.ListFlags, countryCodes string)) dispatch.Token {
	return reg.Register(CountryListKnown, dispatch.ListenerFunc(func(cmd *protocol.Command) error {
		fn(cmd.Args[0].ListFlags(), cmd.Args[1].Text())
		return nil
	}))
}

// CollectCountryList assembles CountryListKnown entries and calls fn once per
// complete list.
func CollectCountryList(reg *dispatch.Registry, fn func(codes []string)) dispatch.Token {
	var list ListAssembler[string]
	return OnCountryListKnown(reg, func(flags protocol.ListFlags, code string) {
		if done, ok := list.Add(flags, code); ok {
			fn(done)
		}
	})
}
