// Package suncalc calculates sun event times for the detection site and
// answers low-light queries for the adaptive fusion policy.
package suncalc

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sj14/astral/pkg/astral"

	"github.com/thewriterben/wildcam-go/internal/errors"
)

// SunEventTimes holds the calculated sun event times for one date.
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// SunCalc caches per-date sun event calculations for a fixed observer.
type SunCalc struct {
	cache    *gocache.Cache
	observer astral.Observer
}

// Per-date results are immutable, so the cache only needs to bound growth.
const (
	cacheExpiration = 48 * time.Hour
	cacheCleanup    = 12 * time.Hour
)

// NewSunCalc creates a calculator for the given site coordinates.
func NewSunCalc(latitude, longitude float64) *SunCalc {
	return &SunCalc{
		cache:    gocache.New(cacheExpiration, cacheCleanup),
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
	}
}

// GetSunEventTimes returns the sun event times for the date of t, cached per
// calendar day in t's location.
func (sc *SunCalc) GetSunEventTimes(t time.Time) (SunEventTimes, error) {
	dateKey := t.Format("2006-01-02")

	if cached, found := sc.cache.Get(dateKey); found {
		return cached.(SunEventTimes), nil
	}

	times, err := sc.calculate(t)
	if err != nil {
		return SunEventTimes{}, err
	}

	sc.cache.SetDefault(dateKey, times)
	return times, nil
}

func (sc *SunCalc) calculate(date time.Time) (SunEventTimes, error) {
	civilDawn, err := astral.Dawn(sc.observer, date, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, sc.calcError("civil dawn", err)
	}
	sunrise, err := astral.Sunrise(sc.observer, date)
	if err != nil {
		return SunEventTimes{}, sc.calcError("sunrise", err)
	}
	sunset, err := astral.Sunset(sc.observer, date)
	if err != nil {
		return SunEventTimes{}, sc.calcError("sunset", err)
	}
	civilDusk, err := astral.Dusk(sc.observer, date, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, sc.calcError("civil dusk", err)
	}

	loc := date.Location()
	return SunEventTimes{
		CivilDawn: civilDawn.In(loc),
		Sunrise:   sunrise.In(loc),
		Sunset:    sunset.In(loc),
		CivilDusk: civilDusk.In(loc),
	}, nil
}

func (sc *SunCalc) calcError(event string, err error) error {
	return errors.Wrap(err).
		Component("suncalc").
		Category(errors.CategoryGeneric).
		Context("event", event).
		Context("latitude", sc.observer.Latitude).
		Context("longitude", sc.observer.Longitude).
		Build()
}

// IsLowLight reports whether t falls outside the civil daylight window.
// During polar periods where the sun never crosses the civil depression the
// calculation fails and a fixed-hours heuristic is used instead.
func (sc *SunCalc) IsLowLight(t time.Time) bool {
	times, err := sc.GetSunEventTimes(t)
	if err != nil {
		hour := t.Hour()
		return hour >= 20 || hour <= 6
	}
	return t.Before(times.CivilDawn) || t.After(times.CivilDusk)
}
