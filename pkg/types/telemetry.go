package types

import "time"

// ProductionReading is a solar production sample.
type ProductionReading struct {
	Timestamp   time.Time `json:"timestamp"`
	ProductionW float64   `json:"productionW"`
}

// BatteryReading is a battery sample.
type BatteryReading struct {
	Timestamp time.Time `json:"timestamp"`
	SOCPct    float64   `json:"socPct"`
	VoltageV  float64   `json:"voltageV"`
	CurrentA  float64   `json:"currentA"`
}

// ConsumptionReading is the power drawn by a single load.
type ConsumptionReading struct {
	Timestamp time.Time `json:"timestamp"`
	LoadID    int64     `json:"loadID"`
	Watts     float64   `json:"watts"`
}

// Measurement is one telemetry upload from the relay board.
type Measurement struct {
	Timestamp    time.Time            `json:"timestamp"`
	Production   ProductionReading    `json:"production"`
	Battery      BatteryReading       `json:"battery"`
	Consumptions []ConsumptionReading `json:"consumptions"`
}
