package models

// DeviceAssignment 设备分配（设备与租户/单元/房间的绑定，注册中心所有，本服务只读）
type DeviceAssignment struct {
	AssignmentToken string  `json:"assignment_token"`
	DeviceID        string  `json:"device_id"`
	DeviceToken     string  `json:"device_token"`
	TenantID        string  `json:"tenant_id"`
	DeviceType      string  `json:"device_type"`
	UnitID          string  `json:"unit_id"`
	RoomID          *string `json:"room_id,omitempty"`
	GatewayDeviceID *string `json:"gateway_device_id,omitempty"`
	PhoneNumber     *string `json:"phone_number,omitempty"`
	CallbackURL     *string `json:"callback_url,omitempty"`
}

// DeviceNestingContext 设备嵌套上下文（目标设备的网关/父设备信息，用于按条件路由）
type DeviceNestingContext struct {
	// Gateway 网关设备分配；设备直连时为 nil
	Gateway *DeviceAssignment `json:"gateway,omitempty"`
	// GatewayDeviceType 网关设备类型；设备直连时为目标设备自身类型
	GatewayDeviceType string `json:"gateway_device_type"`
}
