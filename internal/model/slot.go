package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Half-hour grid of the event window, 19:30 to 22:30 server time.
const (
	SlotStartMinutes = 19*60 + 30
	SlotEndMinutes   = 22*60 + 30
	SlotStepMinutes  = 30

	SlotsPerDay = (SlotEndMinutes - SlotStartMinutes) / SlotStepMinutes
)

var ErrInvalidTimeSlot = errors.New("invalid time slot")

// TimeSlot is a bit-exact availability token such as "sat_19:30-20:00".
type TimeSlot string

// NewTimeSlot builds the token for the k-th half hour of a day.
func NewTimeSlot(day Day, k int) TimeSlot {
	start := SlotStartMinutes + k*SlotStepMinutes
	return TimeSlot(fmt.Sprintf("%s_%s-%s", day.Prefix(), formatClock(start), formatClock(start+SlotStepMinutes)))
}

// Slots returns the grid of a day in chronological order.
func Slots(day Day) []TimeSlot {
	out := make([]TimeSlot, SlotsPerDay)
	for k := range SlotsPerDay {
		out[k] = NewTimeSlot(day, k)
	}
	return out
}

// ParseTimeSlot validates a token against the grid.
func ParseTimeSlot(s string) (TimeSlot, error) {
	_, err := slotIndex(s)
	if err != nil {
		return "", err
	}
	return TimeSlot(s), nil
}

// Day returns the day tag of the token.
func (t TimeSlot) Day() Day {
	if strings.HasPrefix(string(t), "sun_") {
		return Sunday
	}
	return Saturday
}

// Start returns the "HH:MM" start of the window.
func (t TimeSlot) Start() string {
	s := string(t)
	i := strings.IndexByte(s, '_')
	j := strings.IndexByte(s, '-')
	if i < 0 || j < i {
		return ""
	}
	return s[i+1 : j]
}

func slotIndex(s string) (uint, error) {
	prefix, window, ok := strings.Cut(s, "_")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, s)
	}
	day, err := ParseDay(prefix)
	if err != nil || prefix != day.Prefix() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, s)
	}
	start, end, ok := strings.Cut(window, "-")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, s)
	}
	from, err1 := parseClock(start)
	to, err2 := parseClock(end)
	if err1 != nil || err2 != nil || to-from != SlotStepMinutes {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, s)
	}
	if from < SlotStartMinutes || to > SlotEndMinutes || (from-SlotStartMinutes)%SlotStepMinutes != 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, s)
	}
	k := (from - SlotStartMinutes) / SlotStepMinutes
	return uint(day.index()*SlotsPerDay + k), nil
}

func parseClock(s string) (int, error) {
	var h, m int
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTimeSlot
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, ErrInvalidTimeSlot
	}
	if h > 23 || m > 59 {
		return 0, ErrInvalidTimeSlot
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// SlotSet is the declared availability of a member, one bit per grid slot.
// A SlotSet is immutable once built; the zero value is the empty set.
type SlotSet struct {
	bits *bitset.BitSet
}

// NewSlotSet builds a set from tokens. Tokens outside the grid are
// returned in rejected and left out of the set.
func NewSlotSet(tokens ...string) (set SlotSet, rejected []string) {
	bits := bitset.New(uint(2 * SlotsPerDay))
	for _, tok := range tokens {
		i, err := slotIndex(tok)
		if err != nil {
			rejected = append(rejected, tok)
			continue
		}
		bits.Set(i)
	}
	return SlotSet{bits: bits}, rejected
}

// MustSlotSet is NewSlotSet for literals; it panics on a bad token.
func MustSlotSet(tokens ...string) SlotSet {
	set, rejected := NewSlotSet(tokens...)
	if len(rejected) > 0 {
		panic(fmt.Sprintf("model: invalid time slots %v", rejected))
	}
	return set
}

// Has reports whether the slot was declared.
func (s SlotSet) Has(slot TimeSlot) bool {
	if s.bits == nil {
		return false
	}
	i, err := slotIndex(string(slot))
	if err != nil {
		return false
	}
	return s.bits.Test(i)
}

// HasDay reports whether at least one slot of the day was declared.
func (s SlotSet) HasDay(day Day) bool {
	if s.bits == nil {
		return false
	}
	from := uint(day.index() * SlotsPerDay)
	next, ok := s.bits.NextSet(from)
	return ok && next < from+SlotsPerDay
}

// Len is the number of declared slots.
func (s SlotSet) Len() int {
	if s.bits == nil {
		return 0
	}
	return int(s.bits.Count())
}

// Tokens lists the declared slots in grid order.
func (s SlotSet) Tokens() []TimeSlot {
	out := make([]TimeSlot, 0, s.Len())
	if s.bits == nil {
		return out
	}
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		day := Saturday
		if i >= SlotsPerDay {
			day = Sunday
		}
		out = append(out, NewTimeSlot(day, int(i)%SlotsPerDay))
	}
	return out
}

// Equal compares two sets by content.
func (s SlotSet) Equal(o SlotSet) bool {
	if s.Len() == 0 || o.Len() == 0 {
		return s.Len() == o.Len()
	}
	return s.bits.Equal(o.bits)
}

func (s SlotSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Tokens())
}

func (s *SlotSet) UnmarshalJSON(data []byte) error {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	set, rejected := NewSlotSet(tokens...)
	if len(rejected) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeSlot, rejected)
	}
	*s = set
	return nil
}
