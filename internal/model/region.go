package model

import (
	"errors"
	"strings"
)

var (
	ErrUnknownRegion = errors.New("unknown region")
	ErrUnknownDay    = errors.New("unknown day")
)

// Region is one of the independently-run event instances.
type Region string

const (
	RegionVN Region = "VN"
	RegionNA Region = "NA"
)

// Regions lists every region in display order.
var Regions = []Region{RegionVN, RegionNA}

// ParseRegion accepts "VN", "vn", "NA", "na".
func ParseRegion(s string) (Region, error) {
	switch Region(strings.ToUpper(strings.TrimSpace(s))) {
	case RegionVN:
		return RegionVN, nil
	case RegionNA:
		return RegionNA, nil
	default:
		return "", ErrUnknownRegion
	}
}

func (r Region) IsValid() bool {
	return r == RegionVN || r == RegionNA
}

// APIName is the lowercase form used by the remote service.
func (r Region) APIName() string {
	return strings.ToLower(string(r))
}

// TimeZone is the server reference time zone of the region.
func (r Region) TimeZone() string {
	if r == RegionNA {
		return "America/New_York"
	}
	return "Asia/Ho_Chi_Minh"
}

// Day is an event day. The event runs on both with independent rosters.
type Day string

const (
	Saturday Day = "saturday"
	Sunday   Day = "sunday"
)

// Days lists both event days in order.
var Days = []Day{Saturday, Sunday}

// ParseDay accepts the full name or the slot prefix ("sat", "sun").
func ParseDay(s string) (Day, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "saturday", "sat":
		return Saturday, nil
	case "sunday", "sun":
		return Sunday, nil
	default:
		return "", ErrUnknownDay
	}
}

func (d Day) IsValid() bool {
	return d == Saturday || d == Sunday
}

// Prefix is the day tag used inside time-slot tokens.
func (d Day) Prefix() string {
	if d == Sunday {
		return "sun"
	}
	return "sat"
}

func (d Day) index() int {
	if d == Sunday {
		return 1
	}
	return 0
}

// UnmarshalText accepts any casing so request bodies may carry "vn".
func (r *Region) UnmarshalText(text []byte) error {
	parsed, err := ParseRegion(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalText accepts the full name or the slot prefix. An empty value
// leaves the day unset.
func (d *Day) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = ""
		return nil
	}
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
