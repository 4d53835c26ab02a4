package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type Metadata map[string]any

func (a Metadata) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *Metadata) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type SpotStatus string

const (
	SPOT_FREE     SpotStatus = "free"
	SPOT_RESERVED SpotStatus = "reserved"
)

type BookingStatus string

const (
	BOOKING_CREATED  BookingStatus = "created"
	BOOKING_PAID     BookingStatus = "paid"
	BOOKING_APPROVED BookingStatus = "approved"
)

type CreateSpotRequestBody struct {
	SpotID       string  `json:"spot_id" binding:"required"`
	Level        string  `json:"level,omitempty"`
	PricePerHour float32 `json:"price_per_hour" binding:"required,gt=0"`
}

type CreateBookingRequestBody struct {
	SpotID       string `json:"spot_id" binding:"required"`
	VehicleType  string `json:"vehicle_type" binding:"required"`
	LicensePlate string `json:"license_plate" binding:"required"`
	BookingDate  string `json:"booking_date" binding:"required,bookingdate"`
	StartTime    string `json:"start_time" binding:"required,clocktime"`
	EndTime      string `json:"end_time" binding:"required,clocktime"`
}

type AdmissionRequestBody struct {
	BookingID string `json:"booking_id,omitempty" binding:"required_without=Code"`
	Code      string `json:"code,omitempty" binding:"required_without=BookingID"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type BookingURIParams struct {
	BookingID string `uri:"id" binding:"required,uuid"`
}

type SpotURIParams struct {
	SpotID string `uri:"id" binding:"required"`
}

type RegisterUserRequestBody struct {
	Email string `json:"email" binding:"required"`
}

type APIResponseSpot struct {
	SpotID        string     `json:"spot_id"`
	Level         string     `json:"level,omitempty"`
	PricePerHour  float32    `json:"price_per_hour"`
	IsAvailable   bool       `json:"is_available"`
	IsReserved    bool       `json:"is_reserved"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`

	Timestamps
}

type ScanStatusResponse struct {
	Scanned   bool       `json:"scanned"`
	ScannedAt *time.Time `json:"scanned_at,omitempty"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
