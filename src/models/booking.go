package models

import (
	"pms/src/types"
	"time"
)

type Booking struct {
	ID            uint                `gorm:"primarykey" json:"-"`
	BookingID     string              `gorm:"uniqueIndex" json:"booking_id"`
	UserID        uint                `json:"user_id,omitempty"`
	SpotID        string              `gorm:"index" json:"spot_id,omitempty"`
	VehicleType   string              `json:"vehicle_type,omitempty"`
	LicensePlate  string              `json:"license_plate,omitempty"`
	BookingDate   time.Time           `json:"booking_date,omitempty"`
	StartTime     time.Time           `json:"start_time,omitempty"`
	EndTime       time.Time           `json:"end_time,omitempty"`
	TotalPrice    float32             `json:"total_price"`
	Status        types.BookingStatus `gorm:"default:'created'" json:"status,omitempty"`
	IsPaid        bool                `json:"is_paid"`
	EntryToken    *string             `json:"entry_token,omitempty"`
	EntryScanned  bool                `json:"entry_scanned"`
	ScanTimestamp *time.Time          `json:"scan_timestamp,omitempty"`

	CheckoutSessionID *string `json:"-"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Spot *Spot `gorm:"foreignKey:SpotID;references:SpotID" json:"spot,omitempty"`

	types.Timestamps
}
