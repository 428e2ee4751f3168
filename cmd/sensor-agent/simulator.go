package main

import (
	"math"
	"math/rand/v2"

	"github.com/housei/dashboard/domain/entities"
)

// Bounds of the simulated readings
const (
	minTemperature = 15.0
	maxTemperature = 35.0
	minHumidity    = 20.0
	maxHumidity    = 80.0
	maxGas         = 1000.0
	flameChance    = 0.02
)

// simulator random-walks each enabled sensor between readings
type simulator struct {
	sensors     []entities.SensorKind
	rng         *rand.Rand
	temperature float64
	humidity    float64
	gas         float64
}

func newSimulator(sensors []entities.SensorKind) *simulator {
	return newSeededSimulator(sensors, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

func newSeededSimulator(sensors []entities.SensorKind, rng *rand.Rand) *simulator {
	return &simulator{
		sensors:     sensors,
		rng:         rng,
		temperature: 22,
		humidity:    45,
		gas:         120,
	}
}

// next returns a reading carrying only the simulated sensors
func (s *simulator) next() entities.SensorReading {
	var r entities.SensorReading
	for _, kind := range s.sensors {
		switch kind {
		case entities.SensorTemperature:
			s.temperature = s.step(s.temperature, 0.5, minTemperature, maxTemperature)
			v := round1(s.temperature)
			r.Temperature = &v
		case entities.SensorHumidity:
			s.humidity = s.step(s.humidity, 2, minHumidity, maxHumidity)
			v := round1(s.humidity)
			r.Humidity = &v
		case entities.SensorGas:
			s.gas = s.step(s.gas, 25, 0, maxGas)
			v := math.Round(s.gas)
			r.Gas = &v
		case entities.SensorFlame:
			v := s.rng.Float64() < flameChance
			r.Flame = &v
		}
	}
	return r
}

func (s *simulator) step(v, spread, lo, hi float64) float64 {
	v += (s.rng.Float64()*2 - 1) * spread
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
