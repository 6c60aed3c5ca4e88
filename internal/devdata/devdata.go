// Package devdata generates fixture flights and reservations for local
// development and demos.
package devdata

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zones below must resolve on hosts without a zoneinfo database

	"github.com/brianvoe/gofakeit/v7"

	"flightres/internal/fr"
)

const (
	DefaultFlights      = 150
	DefaultReservations = 10000

	minFlightNumber = 100
	maxFlightNumber = 999

	maxPerMultiFlight = 200
	repeatNameChance  = 0.10
)

// Zones are the departure time zones fixtures are spread across.
var Zones = []string{"Europe/Warsaw", "UTC", "America/Los_Angeles", "Asia/Tokyo", "Australia/Brisbane"}

// Fixtures is one generated batch. Flights carry IDs; reservations
// reference them and get their own IDs when added to a store.
type Fixtures struct {
	Flights      []*fr.Flight
	Reservations []*fr.Reservation
}

// Generator produces Fixtures. Not safe for concurrent use.
type Generator struct {
	faker *gofakeit.Faker
	clock fr.Clock
	idgen fr.IDGenerator
	zones []*time.Location
}

// NewGenerator creates a Generator. A zero seed picks a random one.
func NewGenerator(seed uint64, clock fr.Clock, idgen fr.IDGenerator) (*Generator, error) {
	zones := make([]*time.Location, 0, len(Zones))
	for _, name := range Zones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("loading zone %s: %w", name, err)
		}
		zones = append(zones, loc)
	}
	return &Generator{
		faker: gofakeit.New(seed),
		clock: clock,
		idgen: idgen,
		zones: zones,
	}, nil
}

// Generate builds flightCount flights with numbers not reported by taken,
// then spreads reservationCount reservations across them:
//
//   - the first 5% of flights get none
//   - the next 20% get exactly one
//   - each remaining flight gets a random handful
//   - anything left over lands on the second half of the multi flights
//
// About 10% of passenger names repeat an earlier name, never on the same flight.
func (g *Generator) Generate(flightCount, reservationCount int, taken func(number string) bool) (*Fixtures, error) {
	if flightCount < 0 || reservationCount < 0 {
		return nil, fmt.Errorf("counts must not be negative: %w", fr.ErrInvalidArgument)
	}

	flights, err := g.flights(flightCount, taken)
	if err != nil {
		return nil, err
	}
	return &Fixtures{
		Flights:      flights,
		Reservations: g.reservations(flights, reservationCount),
	}, nil
}

func (g *Generator) flights(n int, taken func(string) bool) ([]*fr.Flight, error) {
	var free []string
	for i := minFlightNumber; i <= maxFlightNumber; i++ {
		number := fmt.Sprintf("LO%d", i)
		if taken == nil || !taken(number) {
			free = append(free, number)
		}
	}
	if n > len(free) {
		return nil, fmt.Errorf("only %d flight numbers available, %d requested: %w", len(free), n, fr.ErrInvalidArgument)
	}

	now := g.clock.Now().UTC().Truncate(time.Minute)
	flights := make([]*fr.Flight, 0, n)
	for i := 0; i < n; i++ {
		// Swap-remove keeps the draw uniform without reshuffling.
		j := g.faker.IntRange(0, len(free)-1)
		number := free[j]
		free[j] = free[len(free)-1]
		free = free[:len(free)-1]

		zone := g.zones[g.faker.IntRange(0, len(g.zones)-1)]
		dep := now.AddDate(0, 0, g.faker.IntRange(1, 30)).
			Add(time.Duration(g.faker.IntRange(0, 23)) * time.Hour).
			In(zone)

		flights = append(flights, &fr.Flight{
			ID:            g.idgen.New(),
			Number:        number,
			DepartureTime: dep,
			ArrivalTime:   dep.Add(time.Duration(g.faker.IntRange(1, 12)) * time.Hour),
		})
	}
	return flights, nil
}

func (g *Generator) reservations(flights []*fr.Flight, remaining int) []*fr.Reservation {
	if len(flights) == 0 || remaining == 0 {
		return nil
	}

	none := len(flights) * 5 / 100
	single := len(flights) * 20 / 100
	singles := flights[none : none+single]
	multi := flights[none+single:]

	b := &batch{g: g, names: make(map[string]map[string]bool)}

	for _, f := range singles {
		if remaining == 0 {
			break
		}
		b.add(f)
		remaining--
	}

	upper := min(max(3, len(multi)), maxPerMultiFlight)
	for _, f := range multi {
		if remaining == 0 {
			break
		}
		howMany := min(g.faker.IntRange(2, upper-1), remaining)
		for i := 0; i < howMany; i++ {
			b.add(f)
		}
		remaining -= howMany
	}

	tail := multi[len(multi)/2:]
	if len(multi)/2 == 0 {
		// Too few multi flights to have a second half; use whatever exists.
		tail = multi
	}
	for ; remaining > 0 && len(tail) > 0; remaining-- {
		b.add(tail[g.faker.IntRange(0, len(tail)-1)])
	}
	return b.out
}

// batch tracks names already used, overall and per flight.
type batch struct {
	g     *Generator
	seen  []string
	names map[string]map[string]bool // flight id -> lower-cased names
	out   []*fr.Reservation
}

func (b *batch) add(f *fr.Flight) {
	onFlight := b.names[f.ID]
	if onFlight == nil {
		onFlight = make(map[string]bool)
		b.names[f.ID] = onFlight
	}

	name := b.name(onFlight)
	onFlight[strings.ToLower(name)] = true

	b.out = append(b.out, &fr.Reservation{
		PassengerName: name,
		FlightID:      f.ID,
		Class:         fr.TicketClass(b.g.faker.RandomString(classNames())),
	})
}

func (b *batch) name(onFlight map[string]bool) string {
	if len(b.seen) > 0 && b.g.faker.Float64() < repeatNameChance {
		repeat := b.seen[b.g.faker.IntRange(0, len(b.seen)-1)]
		if !onFlight[strings.ToLower(repeat)] {
			return repeat
		}
	}

	for attempt := 0; ; attempt++ {
		name := b.g.faker.Name()
		if attempt > 20 {
			name = fmt.Sprintf("%s %d", name, attempt)
		}
		if !onFlight[strings.ToLower(name)] {
			b.seen = append(b.seen, name)
			return name
		}
	}
}

func classNames() []string {
	classes := fr.TicketClasses()
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = string(c)
	}
	return out
}
