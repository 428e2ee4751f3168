package entities

import (
	"errors"
	"time"
)

// AdminRecord is a stored dashboard credential pair.
// The password is kept and compared in plain text.
type AdminRecord struct {
	ID        string    `json:"id" bson:"-"`
	Email     string    `json:"email" bson:"email"`
	Password  string    `json:"-" bson:"password"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// SensorReading is one telemetry sample reported by a device agent.
// Nil fields were not measured.
type SensorReading struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Gas         *float64 `json:"gas,omitempty"`
	Flame       *bool    `json:"flame,omitempty"`
}

// Domain validation methods
func (a *AdminRecord) Validate() error {
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// FilterFor keeps only the readings for sensors the device carries and
// stamps the result with now
func (r SensorReading) FilterFor(device *Device, now time.Time) SensorData {
	var data SensorData
	if r.Temperature != nil && device.HasSensor(SensorTemperature) {
		v := *r.Temperature
		data.Temperature = &v
	}
	if r.Humidity != nil && device.HasSensor(SensorHumidity) {
		v := *r.Humidity
		data.Humidity = &v
	}
	if r.Gas != nil && device.HasSensor(SensorGas) {
		v := *r.Gas
		data.Gas = &v
	}
	if r.Flame != nil && device.HasSensor(SensorFlame) {
		v := *r.Flame
		data.Flame = &v
	}
	stamp := now
	data.LastUpdated = &stamp
	return data
}
