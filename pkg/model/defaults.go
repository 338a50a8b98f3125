package model

// Core object IDs.
const (
	ObjectSecurity               = 0
	ObjectServer                 = 1
	ObjectDevice                 = 3
	ObjectConnectivityMonitoring = 4
	ObjectFirmwareUpdate         = 5
	ObjectLocation               = 6
)

func res(id int, name, ops string, typ ResourceType, multiple bool) *ResourceModel {
	return &ResourceModel{
		ID:         id,
		Name:       name,
		Operations: ParseOperations(ops),
		Multiple:   multiple,
		Type:       typ,
	}
}

func object(id int, name string, multiple, mandatory bool, resources ...*ResourceModel) *ObjectModel {
	m := &ObjectModel{
		ID:        id,
		Name:      name,
		Version:   "1.0",
		Multiple:  multiple,
		Mandatory: mandatory,
		Resources: make(map[int]*ResourceModel, len(resources)),
	}
	for _, r := range resources {
		m.Resources[r.ID] = r
	}
	return m
}

// LoadDefault returns fresh copies of the built-in core object definitions.
func LoadDefault() []*ObjectModel {
	return []*ObjectModel{
		object(ObjectSecurity, "LWM2M Security", true, true,
			res(0, "LWM2M Server URI", "", TypeString, false),
			res(1, "Bootstrap-Server", "", TypeBoolean, false),
			res(2, "Security Mode", "", TypeInteger, false),
			res(3, "Public Key or Identity", "", TypeOpaque, false),
			res(4, "Server Public Key", "", TypeOpaque, false),
			res(5, "Secret Key", "", TypeOpaque, false),
			res(10, "Short Server ID", "", TypeInteger, false),
			res(11, "Client Hold Off Time", "", TypeInteger, false),
		),
		object(ObjectServer, "LwM2M Server", true, true,
			res(0, "Short Server ID", "R", TypeInteger, false),
			res(1, "Lifetime", "RW", TypeInteger, false),
			res(2, "Default Minimum Period", "RW", TypeInteger, false),
			res(3, "Default Maximum Period", "RW", TypeInteger, false),
			res(4, "Disable", "E", TypeNone, false),
			res(5, "Disable Timeout", "RW", TypeInteger, false),
			res(6, "Notification Storing When Disabled or Offline", "RW", TypeBoolean, false),
			res(7, "Binding", "RW", TypeString, false),
			res(8, "Registration Update Trigger", "E", TypeNone, false),
		),
		object(ObjectDevice, "Device", false, true,
			res(0, "Manufacturer", "R", TypeString, false),
			res(1, "Model Number", "R", TypeString, false),
			res(2, "Serial Number", "R", TypeString, false),
			res(3, "Firmware Version", "R", TypeString, false),
			res(4, "Reboot", "E", TypeNone, false),
			res(5, "Factory Reset", "E", TypeNone, false),
			res(6, "Available Power Sources", "R", TypeInteger, true),
			res(7, "Power Source Voltage", "R", TypeInteger, true),
			res(8, "Power Source Current", "R", TypeInteger, true),
			res(9, "Battery Level", "R", TypeInteger, false),
			res(10, "Memory Free", "R", TypeInteger, false),
			res(11, "Error Code", "R", TypeInteger, true),
			res(12, "Reset Error Code", "E", TypeNone, false),
			res(13, "Current Time", "RW", TypeTime, false),
			res(14, "UTC Offset", "RW", TypeString, false),
			res(15, "Timezone", "RW", TypeString, false),
			res(16, "Supported Binding and Modes", "R", TypeString, false),
			res(17, "Device Type", "R", TypeString, false),
			res(18, "Hardware Version", "R", TypeString, false),
			res(19, "Software Version", "R", TypeString, false),
			res(20, "Battery Status", "R", TypeInteger, false),
			res(21, "Memory Total", "R", TypeInteger, false),
		),
		object(ObjectConnectivityMonitoring, "Connectivity Monitoring", false, false,
			res(0, "Network Bearer", "R", TypeInteger, false),
			res(1, "Available Network Bearer", "R", TypeInteger, true),
			res(2, "Radio Signal Strength", "R", TypeInteger, false),
			res(3, "Link Quality", "R", TypeInteger, false),
			res(4, "IP Addresses", "R", TypeString, true),
			res(5, "Router IP Addresses", "R", TypeString, true),
			res(6, "Link Utilization", "R", TypeInteger, false),
			res(7, "APN", "R", TypeString, true),
			res(8, "Cell ID", "R", TypeInteger, false),
			res(9, "SMNC", "R", TypeInteger, false),
			res(10, "SMCC", "R", TypeInteger, false),
		),
		object(ObjectFirmwareUpdate, "Firmware Update", false, false,
			res(0, "Package", "W", TypeOpaque, false),
			res(1, "Package URI", "RW", TypeString, false),
			res(2, "Update", "E", TypeNone, false),
			res(3, "State", "R", TypeInteger, false),
			res(5, "Update Result", "R", TypeInteger, false),
			res(6, "PkgName", "R", TypeString, false),
			res(7, "PkgVersion", "R", TypeString, false),
			res(8, "Firmware Update Protocol Support", "R", TypeInteger, true),
			res(9, "Firmware Update Delivery Method", "R", TypeInteger, false),
		),
		object(ObjectLocation, "Location", false, false,
			res(0, "Latitude", "R", TypeFloat, false),
			res(1, "Longitude", "R", TypeFloat, false),
			res(2, "Altitude", "R", TypeFloat, false),
			res(3, "Radius", "R", TypeFloat, false),
			res(4, "Velocity", "R", TypeOpaque, false),
			res(5, "Timestamp", "R", TypeTime, false),
			res(6, "Speed", "R", TypeFloat, false),
		),
	}
}
