package model

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "Low"
	EnergyMedium EnergyLevel = "Medium"
	EnergyHigh   EnergyLevel = "High"
)

// Valid accepts the empty value since energy level is optional.
func (e EnergyLevel) Valid() bool {
	switch e {
	case "", EnergyLow, EnergyMedium, EnergyHigh:
		return true
	}
	return false
}

type Dog struct {
	Name         string      `json:"name"`
	Breed        string      `json:"breed"`
	Age          int         `json:"age"`
	Weight       float64     `json:"weight"`
	EnergyLevel  EnergyLevel `json:"energy_level,omitempty"`
	SpecialNeeds string      `json:"special_needs,omitempty"`
}
