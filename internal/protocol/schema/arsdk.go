package schema

import (
	"fmt"
	"sync"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
)

// Project ids.
const (
	ProjectCommon        uint8 = 0
	ProjectARDrone3      uint8 = 1
	ProjectMiniDrone     uint8 = 2
	ProjectSkyController uint8 = 4
)

type class struct {
	project     uint8
	projectName string
	id          uint8
	name        string
}

func (c class) cmd(id uint16, name string, args ...protocol.ArgumentSpec) protocol.CommandSpec {
	return protocol.CommandSpec{
		ID:      protocol.CommandID{Project: c.project, Class: c.id, Command: id},
		Project: c.projectName,
		Class:   c.name,
		Name:    name,
		Args:    args,
	}
}

func (c class) list(id uint16, name string, args ...protocol.ArgumentSpec) protocol.CommandSpec {
	spec := c.cmd(id, name, args...)
	spec.List = true
	return spec
}

func buffered(b protocol.Buffer, spec protocol.CommandSpec) protocol.CommandSpec {
	spec.Buffer = b
	return spec
}

func arg(name string, t protocol.ArgType) protocol.ArgumentSpec {
	return protocol.ArgumentSpec{Name: name, Type: t}
}

func enumArg(name string, e *protocol.EnumSpec) protocol.ArgumentSpec {
	return protocol.ArgumentSpec{Name: name, Type: protocol.TypeEnum, Enum: e}
}

func listFlags() protocol.ArgumentSpec {
	return arg("list_flags", protocol.TypeListFlags)
}

// enum declares an enum whose sentinel is an extra "unknown" member at -1.
func enum(name string, members ...string) *protocol.EnumSpec {
	values := make([]protocol.EnumValue, 0, len(members)+1)
	values = append(values, protocol.EnumValue{Name: "unknown", Value: -1})
	for i, m := range members {
		values = append(values, protocol.EnumValue{Name: m, Value: int32(i)})
	}
	return protocol.DefineEnum(name, -1, values...)
}

var (
	EnumDisconnectionCause = protocol.DefineEnum("common.NetworkEvent.Disconnection.cause", 1,
		protocol.EnumValue{Name: "off_button", Value: 0},
		protocol.EnumValue{Name: "unknown", Value: 1},
	)
	EnumSensorName = enum("common.CommonState.SensorsStatesListChanged.sensorName",
		"IMU", "barometer", "ultrasound", "GPS", "magnetometer", "vertical_camera")
	EnumAccessory = enum("common.AccessoryState.SupportedAccessoriesListChanged.accessory",
		"NO_ACCESSORY", "STD_WHEELS", "TRUCK_WHEELS", "HULL", "HYDROFOIL")

	EnumFlyingState = enum("ardrone3.PilotingState.FlyingStateChanged.state",
		"landed", "takingoff", "hovering", "flying", "landing", "emergency",
		"usertakeoff", "motor_ramping", "emergency_landing")
	EnumAlertState = enum("ardrone3.PilotingState.AlertStateChanged.state",
		"none", "user", "cut_out", "critical_battery", "low_battery", "too_much_angle")
	EnumNavigateHomeState = enum("ardrone3.PilotingState.NavigateHomeStateChanged.state",
		"available", "inProgress", "unavailable", "pending")
	EnumNavigateHomeReason = enum("ardrone3.PilotingState.NavigateHomeStateChanged.reason",
		"userRequest", "connectionLost", "lowBattery", "finished", "stopped", "disabled", "enabled")
	EnumVideoRecord = enum("ardrone3.MediaRecord.VideoV2.record", "stop", "start")
	EnumVideoState  = enum("ardrone3.MediaRecordState.VideoStateChangedV2.state",
		"stopped", "started", "notAvailable")
	EnumVideoError = protocol.DefineEnum("ardrone3.MediaRecordState.VideoStateChangedV2.error", 1,
		protocol.EnumValue{Name: "ok", Value: 0},
		protocol.EnumValue{Name: "unknown", Value: 1},
		protocol.EnumValue{Name: "camera_ko", Value: 2},
		protocol.EnumValue{Name: "memoryFull", Value: 3},
		protocol.EnumValue{Name: "lowBattery", Value: 4},
	)
	EnumWifiBand = enum("ardrone3.NetworkState.WifiScanListChanged.band", "2_4ghz", "5ghz")

	EnumMiniFlyingState = enum("minidrone.PilotingState.FlyingStateChanged.state",
		"landed", "takingoff", "hovering", "flying", "landing", "emergency", "rolling", "init")

	EnumSkyConnexionStatus = enum("skycontroller.WifiState.ConnexionChanged.status",
		"connected", "error", "disconnected")
)

func arsdkSpecs() []protocol.CommandSpec {
	var (
		network       = class{ProjectCommon, "common", 0, "Network"}
		networkEvent  = class{ProjectCommon, "common", 1, "NetworkEvent"}
		settings      = class{ProjectCommon, "common", 2, "Settings"}
		settingsState = class{ProjectCommon, "common", 3, "SettingsState"}
		common        = class{ProjectCommon, "common", 4, "Common"}
		commonState   = class{ProjectCommon, "common", 5, "CommonState"}
		runState      = class{ProjectCommon, "common", 18, "RunState"}
		accessory     = class{ProjectCommon, "common", 33, "AccessoryState"}

		piloting         = class{ProjectARDrone3, "ardrone3", 0, "Piloting"}
		camera           = class{ProjectARDrone3, "ardrone3", 1, "Camera"}
		pilotingState    = class{ProjectARDrone3, "ardrone3", 4, "PilotingState"}
		mediaRecord      = class{ProjectARDrone3, "ardrone3", 7, "MediaRecord"}
		mediaRecordState = class{ProjectARDrone3, "ardrone3", 8, "MediaRecordState"}
		networkState     = class{ProjectARDrone3, "ardrone3", 14, "NetworkState"}
		gpsSettingsState = class{ProjectARDrone3, "ardrone3", 24, "GPSSettingsState"}
		gpsState         = class{ProjectARDrone3, "ardrone3", 31, "GPSState"}

		miniPiloting      = class{ProjectMiniDrone, "minidrone", 0, "Piloting"}
		miniPilotingState = class{ProjectMiniDrone, "minidrone", 3, "PilotingState"}
		miniSensorsState  = class{ProjectMiniDrone, "minidrone", 5, "SensorsState"}

		skyWifiState = class{ProjectSkyController, "skycontroller", 0, "WifiState"}
		skyState     = class{ProjectSkyController, "skycontroller", 8, "SkyControllerState"}
	)

	return []protocol.CommandSpec{
		buffered(protocol.BufferAck, network.cmd(0, "Disconnect")),
		networkEvent.cmd(0, "Disconnection", enumArg("cause", EnumDisconnectionCause)),

		buffered(protocol.BufferAck, settings.cmd(0, "AllSettings")),
		buffered(protocol.BufferAck, settings.cmd(1, "Reset")),
		buffered(protocol.BufferAck, settings.cmd(2, "ProductName", arg("name", protocol.TypeString))),
		buffered(protocol.BufferAck, settings.cmd(3, "Country", arg("code", protocol.TypeString))),
		buffered(protocol.BufferAck, settings.cmd(4, "AutoCountry", arg("automatic", protocol.TypeU8))),

		settingsState.cmd(0, "AllSettingsChanged"),
		settingsState.cmd(1, "ResetChanged"),
		settingsState.cmd(2, "ProductNameChanged", arg("name", protocol.TypeString)),
		settingsState.cmd(3, "ProductVersionChanged",
			arg("software", protocol.TypeString), arg("hardware", protocol.TypeString)),
		settingsState.cmd(4, "ProductSerialHighChanged", arg("high", protocol.TypeString)),
		settingsState.cmd(5, "ProductSerialLowChanged", arg("low", protocol.TypeString)),
		settingsState.cmd(6, "CountryChanged", arg("code", protocol.TypeString)),
		settingsState.cmd(7, "AutoCountryChanged", arg("automatic", protocol.TypeU8)),

		buffered(protocol.BufferAck, common.cmd(0, "AllStates")),
		buffered(protocol.BufferAck, common.cmd(1, "CurrentDate", arg("date", protocol.TypeString))),
		buffered(protocol.BufferAck, common.cmd(2, "CurrentTime", arg("time", protocol.TypeString))),
		buffered(protocol.BufferAck, common.cmd(3, "Reboot")),

		commonState.cmd(0, "AllStatesChanged"),
		commonState.cmd(1, "BatteryStateChanged", arg("percent", protocol.TypeU8)),
		commonState.cmd(2, "MassStorageStateListChanged",
			arg("mass_storage_id", protocol.TypeU8), arg("name", protocol.TypeString)),
		commonState.cmd(3, "MassStorageInfoStateListChanged",
			arg("mass_storage_id", protocol.TypeU8),
			arg("size", protocol.TypeU32),
			arg("used_size", protocol.TypeU32),
			arg("plugged", protocol.TypeU8),
			arg("full", protocol.TypeU8),
			arg("internal", protocol.TypeU8)),
		commonState.cmd(4, "CurrentDateChanged", arg("date", protocol.TypeString)),
		commonState.cmd(5, "CurrentTimeChanged", arg("time", protocol.TypeString)),
		commonState.cmd(7, "WifiSignalChanged", arg("rssi", protocol.TypeI16)),
		commonState.cmd(8, "SensorsStatesListChanged",
			enumArg("sensorName", EnumSensorName), arg("sensorState", protocol.TypeU8)),
		commonState.list(10, "CountryListKnown", listFlags(), arg("countryCodes", protocol.TypeString)),

		runState.cmd(0, "RunIdChanged", arg("runId", protocol.TypeString)),

		accessory.list(0, "SupportedAccessoriesListChanged", enumArg("accessory", EnumAccessory), listFlags()),

		buffered(protocol.BufferAck, piloting.cmd(0, "FlatTrim")),
		buffered(protocol.BufferAck, piloting.cmd(1, "TakeOff")),
		piloting.cmd(2, "PCMD",
			arg("flag", protocol.TypeU8),
			arg("roll", protocol.TypeI8),
			arg("pitch", protocol.TypeI8),
			arg("yaw", protocol.TypeI8),
			arg("gaz", protocol.TypeI8),
			arg("timestampAndSeqNum", protocol.TypeU32)),
		buffered(protocol.BufferAck, piloting.cmd(3, "Landing")),
		buffered(protocol.BufferHighPrio, piloting.cmd(4, "Emergency")),
		buffered(protocol.BufferAck, piloting.cmd(5, "NavigateHome", arg("start", protocol.TypeU8))),
		buffered(protocol.BufferAck, piloting.cmd(7, "moveBy",
			arg("dX", protocol.TypeFloat),
			arg("dY", protocol.TypeFloat),
			arg("dZ", protocol.TypeFloat),
			arg("dPsi", protocol.TypeFloat))),

		camera.cmd(0, "Orientation", arg("tilt", protocol.TypeI8), arg("pan", protocol.TypeI8)),

		pilotingState.cmd(0, "FlatTrimChanged"),
		pilotingState.cmd(1, "FlyingStateChanged", enumArg("state", EnumFlyingState)),
		pilotingState.cmd(2, "AlertStateChanged", enumArg("state", EnumAlertState)),
		pilotingState.cmd(3, "NavigateHomeStateChanged",
			enumArg("state", EnumNavigateHomeState), enumArg("reason", EnumNavigateHomeReason)),
		pilotingState.cmd(4, "PositionChanged",
			arg("latitude", protocol.TypeDouble),
			arg("longitude", protocol.TypeDouble),
			arg("altitude", protocol.TypeDouble)),
		pilotingState.cmd(5, "SpeedChanged",
			arg("speedX", protocol.TypeFloat),
			arg("speedY", protocol.TypeFloat),
			arg("speedZ", protocol.TypeFloat)),
		pilotingState.cmd(6, "AttitudeChanged",
			arg("roll", protocol.TypeFloat),
			arg("pitch", protocol.TypeFloat),
			arg("yaw", protocol.TypeFloat)),
		pilotingState.cmd(8, "AltitudeChanged", arg("altitude", protocol.TypeDouble)),

		buffered(protocol.BufferAck, mediaRecord.cmd(2, "PictureV2")),
		buffered(protocol.BufferAck, mediaRecord.cmd(3, "VideoV2", enumArg("record", EnumVideoRecord))),
		mediaRecordState.cmd(3, "VideoStateChangedV2",
			enumArg("state", EnumVideoState), enumArg("error", EnumVideoError)),

		networkState.cmd(0, "WifiScanListChanged",
			arg("ssid", protocol.TypeString),
			arg("rssi", protocol.TypeI16),
			enumArg("band", EnumWifiBand),
			arg("channel", protocol.TypeU8)),
		networkState.cmd(1, "AllWifiScanChanged"),

		gpsSettingsState.cmd(0, "HomeChanged",
			arg("latitude", protocol.TypeDouble),
			arg("longitude", protocol.TypeDouble),
			arg("altitude", protocol.TypeDouble)),
		gpsState.cmd(0, "NumberOfSatelliteChanged", arg("numberOfSatellite", protocol.TypeU8)),

		buffered(protocol.BufferAck, miniPiloting.cmd(1, "TakeOff")),
		buffered(protocol.BufferAck, miniPiloting.cmd(3, "Landing")),
		buffered(protocol.BufferHighPrio, miniPiloting.cmd(4, "Emergency")),
		miniPilotingState.cmd(1, "FlyingStateChanged", enumArg("state", EnumMiniFlyingState)),
		miniSensorsState.cmd(0, "DroneQuaternion",
			arg("q_w", protocol.TypeFloat),
			arg("q_x", protocol.TypeFloat),
			arg("q_y", protocol.TypeFloat),
			arg("q_z", protocol.TypeFloat)),
		miniSensorsState.cmd(2, "ClockChanged",
			arg("boot_time_ns", protocol.TypeU64), arg("offset_ns", protocol.TypeI64)),
		miniSensorsState.cmd(3, "MagnetoAxisStateChanged",
			arg("status", protocol.TypeU8),
			arg("x", protocol.TypeU8),
			arg("y", protocol.TypeU8),
			arg("z", protocol.TypeU8)),

		skyWifiState.cmd(0, "WifiList",
			arg("bssid", protocol.TypeString),
			arg("ssid", protocol.TypeString),
			arg("secured", protocol.TypeU8),
			arg("saved", protocol.TypeU8),
			arg("rssi", protocol.TypeI32),
			arg("frequency", protocol.TypeI32)),
		skyWifiState.cmd(1, "ConnexionChanged",
			arg("ssid", protocol.TypeString), enumArg("status", EnumSkyConnexionStatus)),
		skyState.cmd(0, "BatteryChanged", arg("percent", protocol.TypeU8)),
	}
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := NewBuilder().Add(arsdkSpecs()...).Build()
	if err != nil {
		panic(fmt.Sprintf("schema: default table: %v", err))
	}
	return t
})

// Default returns the process-wide ARSDK command table.
func Default() *Table {
	return defaultTable()
}
