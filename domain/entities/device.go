package entities

import (
	"fmt"
	"strings"
	"time"
)

// DeviceType is the kind of appliance a device record describes
type DeviceType string

const (
	DeviceTypeSensorHub  DeviceType = "Sensor Hub"
	DeviceTypeLight      DeviceType = "Light"
	DeviceTypeThermostat DeviceType = "Thermostat"
	DeviceTypeCamera     DeviceType = "Camera"
	DeviceTypeLock       DeviceType = "Lock"
	DeviceTypeOther      DeviceType = "Other"
)

// DeviceTypes lists every accepted device type in display order
var DeviceTypes = []DeviceType{
	DeviceTypeSensorHub,
	DeviceTypeLight,
	DeviceTypeThermostat,
	DeviceTypeCamera,
	DeviceTypeLock,
	DeviceTypeOther,
}

// Valid reports whether t is one of the known device types
func (t DeviceType) Valid() bool {
	for _, known := range DeviceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DeviceStatus is the power state of a device
type DeviceStatus string

const (
	DeviceStatusOn  DeviceStatus = "on"
	DeviceStatusOff DeviceStatus = "off"
)

// Valid reports whether s is on or off
func (s DeviceStatus) Valid() bool {
	return s == DeviceStatusOn || s == DeviceStatusOff
}

// Opposite returns the status a toggle would write
func (s DeviceStatus) Opposite() DeviceStatus {
	if s == DeviceStatusOn {
		return DeviceStatusOff
	}
	return DeviceStatusOn
}

// SensorKind names a sensor a device may carry
type SensorKind string

const (
	SensorTemperature SensorKind = "temperature"
	SensorHumidity    SensorKind = "humidity"
	SensorGas         SensorKind = "gas"
	SensorFlame       SensorKind = "flame"
)

// SensorKinds lists every supported sensor kind
var SensorKinds = []SensorKind{
	SensorTemperature,
	SensorHumidity,
	SensorGas,
	SensorFlame,
}

// Valid reports whether k is a supported sensor kind
func (k SensorKind) Valid() bool {
	switch k {
	case SensorTemperature, SensorHumidity, SensorGas, SensorFlame:
		return true
	}
	return false
}

// SensorData holds the last observed value of each enabled sensor.
// A nil field means the device does not carry that sensor.
type SensorData struct {
	Temperature *float64   `json:"temperature,omitempty" bson:"temperature,omitempty"`
	Humidity    *float64   `json:"humidity,omitempty" bson:"humidity,omitempty"`
	Gas         *float64   `json:"gas,omitempty" bson:"gas,omitempty"`
	Flame       *bool      `json:"flame,omitempty" bson:"flame,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty" bson:"last_updated,omitempty"`
}

// InitialSensorData seeds every selected sensor with its zero value and
// stamps the result with now. It returns an empty value when no sensor is
// selected.
func InitialSensorData(sensors []SensorKind, now time.Time) SensorData {
	var data SensorData
	for _, kind := range sensors {
		switch kind {
		case SensorTemperature:
			data.Temperature = new(float64)
		case SensorHumidity:
			data.Humidity = new(float64)
		case SensorGas:
			data.Gas = new(float64)
		case SensorFlame:
			data.Flame = new(bool)
		}
	}
	if len(sensors) > 0 {
		stamp := now
		data.LastUpdated = &stamp
	}
	return data
}

// Keys returns the sensor kinds that have a value, in canonical order
func (d SensorData) Keys() []SensorKind {
	keys := make([]SensorKind, 0, len(SensorKinds))
	if d.Temperature != nil {
		keys = append(keys, SensorTemperature)
	}
	if d.Humidity != nil {
		keys = append(keys, SensorHumidity)
	}
	if d.Gas != nil {
		keys = append(keys, SensorGas)
	}
	if d.Flame != nil {
		keys = append(keys, SensorFlame)
	}
	return keys
}

// Device represents a registered home-automation device
type Device struct {
	ID            string       `json:"id" bson:"-"`
	Name          string       `json:"name" bson:"name"`
	Type          DeviceType   `json:"type" bson:"type"`
	Status        DeviceStatus `json:"status" bson:"status"`
	IsOnline      bool         `json:"is_online" bson:"is_online"`
	PowerUsage    *float64     `json:"power_usage,omitempty" bson:"power_usage,omitempty"`
	Sensors       []SensorKind `json:"sensors,omitempty" bson:"sensors,omitempty"`
	OwnerEmail    string       `json:"owner_email,omitempty" bson:"owner_email,omitempty"`
	OwnerPassword string       `json:"-" bson:"owner_password,omitempty"`
	SensorData    *SensorData  `json:"sensor_data,omitempty" bson:"sensor_data,omitempty"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
}

// Power returns the estimated draw in watts, zero when unknown
func (d *Device) Power() float64 {
	if d.PowerUsage == nil {
		return 0
	}
	return *d.PowerUsage
}

// HasSensor reports whether the device was registered with kind
func (d *Device) HasSensor(kind SensorKind) bool {
	for _, s := range d.Sensors {
		if s == kind {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot alias store-owned state
func (d Device) Clone() Device {
	out := d
	if d.PowerUsage != nil {
		v := *d.PowerUsage
		out.PowerUsage = &v
	}
	if d.Sensors != nil {
		out.Sensors = append([]SensorKind(nil), d.Sensors...)
	}
	if d.SensorData != nil {
		data := d.SensorData.clone()
		out.SensorData = &data
	}
	return out
}

func (d SensorData) clone() SensorData {
	out := SensorData{}
	if d.Temperature != nil {
		v := *d.Temperature
		out.Temperature = &v
	}
	if d.Humidity != nil {
		v := *d.Humidity
		out.Humidity = &v
	}
	if d.Gas != nil {
		v := *d.Gas
		out.Gas = &v
	}
	if d.Flame != nil {
		v := *d.Flame
		out.Flame = &v
	}
	if d.LastUpdated != nil {
		v := *d.LastUpdated
		out.LastUpdated = &v
	}
	return out
}

// DeviceDraft is the admin's input for a new device
type DeviceDraft struct {
	Name          string       `json:"name"`
	Type          DeviceType   `json:"type"`
	Sensors       []SensorKind `json:"sensors"`
	OwnerEmail    string       `json:"owner_email"`
	OwnerPassword string       `json:"owner_password"`
}

// Validate checks the draft and normalizes its sensor selection.
// Duplicate sensors are collapsed, keeping first-seen order.
func (d *DeviceDraft) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return &ValidationError{Field: "name", Message: "device name is required"}
	}
	if !d.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown device type %q", d.Type)}
	}
	if len(d.Sensors) == 0 {
		return &ValidationError{Field: "sensors", Message: "select at least one sensor"}
	}

	seen := make(map[SensorKind]bool, len(d.Sensors))
	sensors := make([]SensorKind, 0, len(d.Sensors))
	for _, kind := range d.Sensors {
		if !kind.Valid() {
			return &ValidationError{Field: "sensors", Message: fmt.Sprintf("unknown sensor %q", kind)}
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		sensors = append(sensors, kind)
	}
	d.Sensors = sensors

	d.OwnerEmail = strings.TrimSpace(d.OwnerEmail)
	if d.OwnerEmail == "" || d.OwnerPassword == "" {
		return &ValidationError{Field: "owner", Message: "owner email and password are required"}
	}
	return nil
}

// DeviceUpdate carries the fields of a partial device write.
// Nil fields are left untouched.
type DeviceUpdate struct {
	Status     *DeviceStatus
	IsOnline   *bool
	SensorData *SensorData
}

// Empty reports whether the update would not change anything
func (u DeviceUpdate) Empty() bool {
	return u.Status == nil && u.IsOnline == nil && u.SensorData == nil
}

// Apply writes the update's fields onto d
func (u DeviceUpdate) Apply(d *Device) {
	if u.Status != nil {
		d.Status = *u.Status
	}
	if u.IsOnline != nil {
		d.IsOnline = *u.IsOnline
	}
	if u.SensorData != nil {
		data := u.SensorData.clone()
		d.SensorData = &data
	}
}
