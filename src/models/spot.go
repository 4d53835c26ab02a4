package models

import (
	"pms/src/types"
	"time"
)

// Spot holds a single tagged reservation state instead of the
// availability/reservation flag pair: status is "free" or "reserved",
// and ReservedUntil is meaningful only while reserved. The flag pair
// is derived in API responses.
type Spot struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	SpotID        string           `gorm:"uniqueIndex" json:"spot_id"`
	Level         string           `json:"level,omitempty"`
	PricePerHour  float32          `json:"price_per_hour"`
	Status        types.SpotStatus `gorm:"default:'free'" json:"status,omitempty"`
	ReservedUntil *time.Time       `json:"reserved_until,omitempty"`

	types.Timestamps
}

// Bookable reports whether the spot can service a window starting at the
// given instant. A reservation past its window is treated as expired here
// even if the sweep has not reclaimed the row yet.
func (s *Spot) Bookable(windowStart time.Time) bool {
	if s.Status == types.SPOT_FREE {
		return true
	}
	return s.ReservedUntil != nil && !s.ReservedUntil.After(windowStart)
}

func (s *Spot) ToAPI() types.APIResponseSpot {
	reserved := s.Status == types.SPOT_RESERVED
	return types.APIResponseSpot{
		SpotID:        s.SpotID,
		Level:         s.Level,
		PricePerHour:  s.PricePerHour,
		IsAvailable:   !reserved,
		IsReserved:    reserved,
		ReservedUntil: s.ReservedUntil,
		Timestamps:    s.Timestamps,
	}
}
