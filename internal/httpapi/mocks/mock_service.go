package mocks

import (
	"github.com/stretchr/testify/mock"

	"flightres/internal/fr"
	"flightres/internal/service"
)

// MockService is a mock implementation of httpapi.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ListFlights(withReservations bool, page *service.PageRequest) (service.Page[service.FlightView], error) {
	args := m.Called(withReservations, page)
	return args.Get(0).(service.Page[service.FlightView]), args.Error(1)
}

func (m *MockService) GetFlight(id string) (*fr.Flight, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fr.Flight), args.Error(1)
}

func (m *MockService) CreateFlight(f *fr.Flight) (*fr.Flight, error) {
	args := m.Called(f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fr.Flight), args.Error(1)
}

func (m *MockService) UpdateFlight(id string, f *fr.Flight) (*fr.Flight, error) {
	args := m.Called(id, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fr.Flight), args.Error(1)
}

func (m *MockService) ListReservations(page service.PageRequest) (service.Page[*fr.Reservation], error) {
	args := m.Called(page)
	return args.Get(0).(service.Page[*fr.Reservation]), args.Error(1)
}

func (m *MockService) GetReservation(id string) (*fr.Reservation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fr.Reservation), args.Error(1)
}

func (m *MockService) CreateReservation(r *fr.Reservation) (*fr.Reservation, error) {
	args := m.Called(r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fr.Reservation), args.Error(1)
}

func (m *MockService) UpdateReservation(id string, r *fr.Reservation) (*fr.Reservation, error) {
	args := m.Called(id, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fr.Reservation), args.Error(1)
}

func (m *MockService) DeleteReservation(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockService) GenerateDevData(flights, reservations int, seed uint64) (service.DevDataResult, error) {
	args := m.Called(flights, reservations, seed)
	return args.Get(0).(service.DevDataResult), args.Error(1)
}

func (m *MockService) ClearDevData() error {
	args := m.Called()
	return args.Error(0)
}
