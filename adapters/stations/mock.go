package stations

import (
	"context"

	"github.com/satriahrh/firdraft/domain/entities"
)

// MockLocator returns a fixed list of New Delhi stations regardless of position
type MockLocator struct{}

// NewMockLocator creates the fixed-data station locator
func NewMockLocator() *MockLocator {
	return &MockLocator{}
}

var delhiStations = []entities.Station{
	{Name: "Connaught Place Police Station", Address: "Connaught Lane, New Delhi, Delhi 110001", Distance: "1.2 km"},
	{Name: "Parliament Street Police Station", Address: "Parliament Street, New Delhi, Delhi 110001", Distance: "2.5 km"},
	{Name: "Mandir Marg Police Station", Address: "Mandir Marg, New Delhi, Delhi 110001", Distance: "3.1 km"},
	{Name: "Chanakyapuri Police Station", Address: "Teen Murti Marg, New Delhi, Delhi 110021", Distance: "4.0 km"},
}

// Nearby implements repositories.StationLocator
func (l *MockLocator) Nearby(ctx context.Context, at entities.Coordinate) ([]entities.Station, error) {
	if err := at.Validate(); err != nil {
		return nil, err
	}
	out := make([]entities.Station, len(delhiStations))
	copy(out, delhiStations)
	return out, nil
}
