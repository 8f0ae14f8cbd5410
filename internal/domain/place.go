package domain

// Place is a caregiver centre suggestion from the open-data lookup.
type Place struct {
	Name    string
	Address string
}
