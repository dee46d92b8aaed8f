package obd

type Unit string

const (
	UnitKPH       Unit = "km/h"
	UnitRPM       Unit = "rpm"
	UnitPercent   Unit = "percent"
	UnitCelsius   Unit = "degC"
	UnitKilometer Unit = "km"
	UnitSecond    Unit = "s"
)

const kmPerMile = 1.609344

// Quantity is a decoded physical value. The accessors convert from the
// unit the vehicle reports to the unit the dashboard shows.
type Quantity struct {
	Magnitude float64
	Unit      Unit
}

func (q Quantity) MPH() float64 {
	if q.Unit == UnitKPH {
		return q.Magnitude / kmPerMile
	}
	return q.Magnitude
}

func (q Quantity) RPM() float64 {
	return q.Magnitude
}

func (q Quantity) Percent() float64 {
	return q.Magnitude
}

func (q Quantity) Celsius() float64 {
	return q.Magnitude
}

func (q Quantity) Miles() float64 {
	if q.Unit == UnitKilometer {
		return q.Magnitude / kmPerMile
	}
	return q.Magnitude
}

func (q Quantity) Minutes() float64 {
	if q.Unit == UnitSecond {
		return q.Magnitude / 60
	}
	return q.Magnitude
}
