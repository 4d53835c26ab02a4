package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"time"

	"pms/src/config"
	"pms/src/db"
	"pms/src/models"
	"pms/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func CreateSpot(params *types.CreateSpotRequestBody) (*models.Spot, error) {
	spot := models.Spot{
		SpotID:       params.SpotID,
		Level:        params.Level,
		PricePerHour: params.PricePerHour,
		Status:       types.SPOT_FREE,
	}
	db := db.GetDb()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&spot).Error
	}); err != nil {
		return nil, types.WrapUpstream("could not create spot", err)
	}
	return &spot, nil
}

func GetSpot(spotId string) (*models.Spot, error) {
	var spot models.Spot
	db := db.GetDb()
	if err := db.Where(&models.Spot{SpotID: spotId}).First(&spot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewAPIError(types.ERR_NOT_FOUND, "spot not found")
		}
		return nil, types.WrapUpstream("could not retrieve spot", err)
	}
	return &spot, nil
}

func ListSpots() ([]models.Spot, error) {
	var spots []models.Spot
	db := db.GetDb()
	if err := db.Order("spot_id asc").Find(&spots).Error; err != nil {
		return nil, types.WrapUpstream("could not list spots", err)
	}
	return spots, nil
}

// AllocateSpot claims a spot for the window [start, end) and returns the
// spot together with the computed price. The claim is a single conditional
// UPDATE keyed on the spot's current reservation state, so of any number
// of concurrent attempts for an overlapping window exactly one wins and
// the rest observe a spot_unavailable rejection.
func AllocateSpot(spotId string, start time.Time, end time.Time) (*models.Spot, float32, error) {
	if !end.After(start) {
		return nil, 0, types.NewAPIError(types.ERR_INVALID_INPUT, "end time must be after start time")
	}
	spot, err := GetSpot(spotId)
	if err != nil {
		return nil, 0, err
	}
	if !spot.Bookable(start) {
		return nil, 0, types.NewAPIError(types.ERR_SPOT_UNAVAILABLE, "spot is not available for booking")
	}

	durationHours := math.Ceil(end.Sub(start).Hours())
	totalPrice := float32(durationHours) * spot.PricePerHour

	db := db.GetDb()
	res := db.
		Model(&models.Spot{}).
		Where("spot_id = ? AND (status = ? OR reserved_until <= ?)", spotId, types.SPOT_FREE, start).
		Updates(map[string]any{
			"status":         types.SPOT_RESERVED,
			"reserved_until": end,
		})
	if res.Error != nil {
		return nil, 0, types.WrapUpstream("could not reserve spot", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, 0, types.NewAPIError(types.ERR_SPOT_UNAVAILABLE, "spot is not available for booking")
	}
	spot.Status = types.SPOT_RESERVED
	spot.ReservedUntil = &end
	return spot, totalPrice, nil
}

// ReleaseSpot returns a spot to the free state. Used by the admin reset
// path and as the compensating action when booking persistence fails
// after the spot claim succeeded.
func ReleaseSpot(spotId string) error {
	db := db.GetDb()
	res := db.
		Model(&models.Spot{}).
		Where("spot_id = ?", spotId).
		Updates(map[string]any{
			"status":         types.SPOT_FREE,
			"reserved_until": nil,
		})
	if res.Error != nil {
		return types.WrapUpstream("could not release spot", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewAPIError(types.ERR_NOT_FOUND, "spot not found")
	}
	return nil
}

// SweepExpiredReservations reclaims spots whose reservation window has
// passed. Allocation never depends on the sweep (the claim predicate
// treats an expired reservation as free), but listings would otherwise
// show long-gone reservations forever.
func SweepExpiredReservations() (int64, error) {
	db := db.GetDb()
	res := db.
		Model(&models.Spot{}).
		Where("status = ? AND reserved_until <= ?", types.SPOT_RESERVED, time.Now()).
		Updates(map[string]any{
			"status":         types.SPOT_FREE,
			"reserved_until": nil,
		})
	if res.Error != nil {
		return 0, types.WrapUpstream("reservation sweep failed", res.Error)
	}
	return res.RowsAffected, nil
}

func parseWindow(params *types.CreateBookingRequestBody) (time.Time, time.Time, time.Time, error) {
	bookingDate, err := time.Parse(config.DATE_PARSE_FORMAT, params.BookingDate)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, types.NewAPIError(types.ERR_INVALID_INPUT, "invalid booking date")
	}
	layout := config.DATE_PARSE_FORMAT + " 15:04"
	start, err := time.Parse(layout, fmt.Sprintf("%s %s", params.BookingDate, params.StartTime))
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, types.NewAPIError(types.ERR_INVALID_INPUT, "invalid start time")
	}
	end, err := time.Parse(layout, fmt.Sprintf("%s %s", params.BookingDate, params.EndTime))
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, types.NewAPIError(types.ERR_INVALID_INPUT, "invalid end time")
	}
	return bookingDate, start, end, nil
}

// CreateBooking runs the two-step reservation saga: claim the spot first,
// persist the booking second. A booking row is never written unless the
// spot claim reported success; if the write fails the claim is rolled
// back with a compensating release.
func CreateBooking(userId uint, params *types.CreateBookingRequestBody) (*models.Booking, error) {
	if userId == 0 {
		return nil, types.NewAPIError(types.ERR_INVALID_INPUT, "invalid owner identifier")
	}
	bookingDate, start, end, err := parseWindow(params)
	if err != nil {
		return nil, err
	}

	spot, totalPrice, err := AllocateSpot(params.SpotID, start, end)
	if err != nil {
		return nil, err
	}

	booking := models.Booking{
		BookingID:    uuid.NewString(),
		UserID:       userId,
		SpotID:       spot.SpotID,
		VehicleType:  params.VehicleType,
		LicensePlate: params.LicensePlate,
		BookingDate:  bookingDate,
		StartTime:    start,
		EndTime:      end,
		TotalPrice:   totalPrice,
		Status:       types.BOOKING_CREATED,
		IsPaid:       false,
	}
	db := db.GetDb()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&booking).Error
	}); err != nil {
		log.Printf("Error persisting Booking for Spot [%s]: %s\n", spot.SpotID, err.Error())
		if relErr := ReleaseSpot(spot.SpotID); relErr != nil {
			log.Printf("Compensating release for Spot [%s] failed: %s\n", spot.SpotID, relErr.Error())
			return nil, types.WrapUpstream(
				fmt.Sprintf("booking not persisted and spot %s left reserved; reconciliation required", spot.SpotID),
				err,
			)
		}
		return nil, types.WrapUpstream("booking could not be persisted; spot reservation released", err)
	}

	return &booking, nil
}

func GetBooking(bookingId string) (*models.Booking, error) {
	var booking models.Booking
	db := db.GetDb()
	if err := db.Where(&models.Booking{BookingID: bookingId}).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewAPIError(types.ERR_NOT_FOUND, "booking not found")
		}
		return nil, types.WrapUpstream("could not retrieve booking", err)
	}
	return &booking, nil
}

func GetOwnBookings(userId uint) ([]models.Booking, error) {
	var bookings []models.Booking
	db := db.GetDb()
	err := db.
		Model(&models.Booking{}).
		Where(&models.Booking{UserID: userId}).
		Order("created_at DESC").
		Limit(100).
		Find(&bookings).
		Error
	if err != nil {
		return nil, types.WrapUpstream("could not retrieve bookings", err)
	}
	return bookings, nil
}

// MarkBookingPaid is the payment collaborator's confirmation callback.
// Confirming an already-paid booking is a success with no mutation, so
// duplicate webhook deliveries never mint a second token.
func MarkBookingPaid(bookingId string) (*models.Booking, error) {
	booking, err := GetBooking(bookingId)
	if err != nil {
		return nil, err
	}
	if booking.IsPaid {
		return booking, nil
	}

	token, err := MintEntryToken(bookingId)
	if err != nil {
		return nil, types.WrapUpstream("could not mint entry token", err)
	}

	db := db.GetDb()
	res := db.
		Model(&models.Booking{}).
		Where("booking_id = ? AND is_paid = ?", bookingId, false).
		Updates(map[string]any{
			"is_paid":     true,
			"status":      types.BOOKING_PAID,
			"entry_token": token,
		})
	if res.Error != nil {
		return nil, types.WrapUpstream("could not mark booking paid", res.Error)
	}
	// RowsAffected == 0 means a concurrent confirmation won; fall through
	// and return whatever is stored now.
	return GetBooking(bookingId)
}

// ValidateScan consumes an entry scan at the gate. Re-scanning an
// approved booking reports acceptance with the original timestamp;
// an unpaid booking is always rejected and never mutated.
func ValidateScan(bookingId string) (*models.Booking, error) {
	booking, err := GetBooking(bookingId)
	if err != nil {
		return nil, err
	}
	if booking.EntryScanned {
		return booking, nil
	}
	if !booking.IsPaid {
		return nil, types.NewAPIError(types.ERR_PAYMENT_REQUIRED, "booking is not paid")
	}

	now := time.Now()
	db := db.GetDb()
	res := db.
		Model(&models.Booking{}).
		Where("booking_id = ? AND entry_scanned = ? AND is_paid = ?", bookingId, false, true).
		Updates(map[string]any{
			"entry_scanned":  true,
			"scan_timestamp": now,
			"status":         types.BOOKING_APPROVED,
		})
	if res.Error != nil {
		return nil, types.WrapUpstream("could not record entry scan", res.Error)
	}
	return GetBooking(bookingId)
}

func CheckScanStatus(bookingId string) (*types.ScanStatusResponse, error) {
	booking, err := GetBooking(bookingId)
	if err != nil {
		return nil, err
	}
	return &types.ScanStatusResponse{
		Scanned:   booking.EntryScanned,
		ScannedAt: booking.ScanTimestamp,
	}, nil
}

// ApproveBooking is the admin override: it approves entry regardless of
// payment state. This is deliberately the only path that can approve an
// unpaid booking; the privilege check happens at the router edge.
func ApproveBooking(bookingId string) (*models.Booking, error) {
	booking, err := GetBooking(bookingId)
	if err != nil {
		return nil, err
	}
	if booking.EntryScanned {
		return booking, nil
	}

	now := time.Now()
	db := db.GetDb()
	res := db.
		Model(&models.Booking{}).
		Where("booking_id = ? AND entry_scanned = ?", bookingId, false).
		Updates(map[string]any{
			"entry_scanned":  true,
			"scan_timestamp": now,
			"status":         types.BOOKING_APPROVED,
		})
	if res.Error != nil {
		return nil, types.WrapUpstream("could not approve booking", res.Error)
	}
	return GetBooking(bookingId)
}

func qrcSecret() ([]byte, error) {
	keyEnv := os.Getenv("API_QRC_SECRET")
	key, err := hex.DecodeString(keyEnv)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// MintEntryToken seals the booking id plus a one-time nonce into an
// opaque string. The nonce keeps tokens unique even across re-issues
// for the same booking.
func MintEntryToken(bookingId string) (string, error) {
	key, err := qrcSecret()
	if err != nil {
		return "", err
	}
	rawData := map[string]any{
		"booking_id": bookingId,
		"nonce":      uuid.NewString(),
	}
	rawBytes, _ := json.Marshal(rawData)
	return EncryptMessage(key, string(rawBytes))
}

// DecodeEntryToken reverses MintEntryToken and yields the booking id the
// scanned code was minted for.
func DecodeEntryToken(code string) (string, error) {
	key, err := qrcSecret()
	if err != nil {
		return "", err
	}
	message, err := DecryptMessage(key, code)
	if err != nil {
		return "", err
	}
	var rawData map[string]any
	if err := json.Unmarshal([]byte(*message), &rawData); err != nil {
		return "", err
	}
	bookingId, ok := rawData["booking_id"].(string)
	if !ok || bookingId == "" {
		return "", errors.New("code carries no booking id")
	}
	return bookingId, nil
}

func EncryptMessage(key []byte, message string) (string, error) {
	plaintext := []byte(message)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	cipherText := gcm.Seal(nonce, nonce, plaintext, nil)
	encodedString := hex.EncodeToString(cipherText)

	return encodedString, nil
}

func DecryptMessage(key []byte, message string) (*string, error) {
	cipherText, err := hex.DecodeString(message)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(cipherText) < gcm.NonceSize() {
		return nil, errors.New("message is too short")
	}
	decryptedData, err := gcm.Open(nil, cipherText[:gcm.NonceSize()], cipherText[gcm.NonceSize():], nil)
	if err != nil {
		return nil, err
	}
	decodedString := string(decryptedData)

	return &decodedString, nil
}
