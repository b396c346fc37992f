package model

import "strings"

// Specialist selects which clinical sections and retrieval bias a summary
// is generated with.
type Specialist string

const (
	SpecialistDermatologist   Specialist = "dermatologist"
	SpecialistOphthalmologist Specialist = "ophthalmologist"
	SpecialistImmunologist    Specialist = "immunologist"
	SpecialistNeurologist     Specialist = "neurologist"
	SpecialistCardiologist    Specialist = "cardiologist"
	SpecialistGeneral         Specialist = "general"
)

var specialists = []Specialist{
	SpecialistDermatologist,
	SpecialistOphthalmologist,
	SpecialistImmunologist,
	SpecialistNeurologist,
	SpecialistCardiologist,
	SpecialistGeneral,
}

func Specialists() []Specialist {
	out := make([]Specialist, len(specialists))
	copy(out, specialists)
	return out
}

func ParseSpecialist(value string) (Specialist, bool) {
	s := Specialist(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range specialists {
		if s == known {
			return s, true
		}
	}
	return "", false
}
