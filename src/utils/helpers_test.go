package utils

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pms/src/db"
	"pms/src/models"
	"pms/src/types"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type HelpersTestSuite struct {
	suite.Suite
	db   *gorm.DB
	user models.User
}

func (s *HelpersTestSuite) SetupSuite() {
	os.Setenv("API_QRC_SECRET", "6368616e676520746869732070617373776f726420746f206120736563726574")

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	s.Require().NoError(err)
	sqlDB, err := gdb.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(gdb.AutoMigrate(&models.User{}, &models.Spot{}, &models.Booking{}))
	db.NewDB(gdb)
	s.db = gdb

	s.user = models.User{Name: "test driver", Email: "driver@example.test"}
	s.Require().NoError(gdb.Create(&s.user).Error)
}

func (s *HelpersTestSuite) createSpot(spotId string, pricePerHour float32) *models.Spot {
	spot, err := CreateSpot(&types.CreateSpotRequestBody{
		SpotID:       spotId,
		Level:        "L1",
		PricePerHour: pricePerHour,
	})
	s.Require().NoError(err)
	return spot
}

func (s *HelpersTestSuite) bookingParams(spotId string) *types.CreateBookingRequestBody {
	return &types.CreateBookingRequestBody{
		SpotID:       spotId,
		VehicleType:  "car",
		LicensePlate: "ABC-1234",
		BookingDate:  "2026-09-01",
		StartTime:    "09:00",
		EndTime:      "10:30",
	}
}

func (s *HelpersTestSuite) TestAllocateSpotRoundsPriceUpToFullHours() {
	s.createSpot("A-01", 2)
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	spot, total, err := AllocateSpot("A-01", start, end)
	s.NoError(err)
	s.Equal(types.SPOT_RESERVED, spot.Status)
	s.Equal(float32(4), total)
}

func (s *HelpersTestSuite) TestAllocateSpotRejectsEmptyWindow() {
	s.createSpot("A-02", 2)
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	_, _, err := AllocateSpot("A-02", start, start)
	s.Equal(types.ERR_INVALID_INPUT, types.KindOf(err))
}

func (s *HelpersTestSuite) TestAllocateSpotUnknown() {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	_, _, err := AllocateSpot("NO-SUCH-SPOT", start, start.Add(time.Hour))
	s.Equal(types.ERR_NOT_FOUND, types.KindOf(err))
}

func (s *HelpersTestSuite) TestAllocateSpotRejectsOverlap() {
	s.createSpot("A-03", 3)
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	_, _, err := AllocateSpot("A-03", start, start.Add(2*time.Hour))
	s.NoError(err)

	_, _, err = AllocateSpot("A-03", start.Add(time.Hour), start.Add(3*time.Hour))
	s.Equal(types.ERR_SPOT_UNAVAILABLE, types.KindOf(err))
}

func (s *HelpersTestSuite) TestAllocateSpotReclaimsExpiredReservation() {
	s.createSpot("A-04", 3)
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	_, _, err := AllocateSpot("A-04", start, start.Add(time.Hour))
	s.NoError(err)

	spot, total, err := AllocateSpot("A-04", start.Add(2*time.Hour), start.Add(3*time.Hour))
	s.NoError(err)
	s.Equal(types.SPOT_RESERVED, spot.Status)
	s.Equal(float32(3), total)
}

func (s *HelpersTestSuite) TestConcurrentAllocationHasSingleWinner() {
	s.createSpot("A-05", 2)
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	const attempts = 8
	var won, lost atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := AllocateSpot("A-05", start, end)
			if err == nil {
				won.Add(1)
				return
			}
			if types.KindOf(err) == types.ERR_SPOT_UNAVAILABLE {
				lost.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), won.Load())
	s.Equal(int32(attempts-1), lost.Load())
}

func (s *HelpersTestSuite) TestCreateBookingRejectsMissingOwner() {
	_, err := CreateBooking(0, s.bookingParams("A-06"))
	s.Equal(types.ERR_INVALID_INPUT, types.KindOf(err))
}

func (s *HelpersTestSuite) TestCreateBooking() {
	s.createSpot("A-07", 2)

	booking, err := CreateBooking(s.user.ID, s.bookingParams("A-07"))
	s.Require().NoError(err)
	s.NotEmpty(booking.BookingID)
	s.Equal(types.BOOKING_CREATED, booking.Status)
	s.False(booking.IsPaid)
	s.Equal(float32(4), booking.TotalPrice)

	spot, err := GetSpot("A-07")
	s.NoError(err)
	s.Equal(types.SPOT_RESERVED, spot.Status)

	_, err = CreateBooking(s.user.ID, s.bookingParams("A-07"))
	s.Equal(types.ERR_SPOT_UNAVAILABLE, types.KindOf(err))
}

func (s *HelpersTestSuite) TestMarkBookingPaidIsIdempotent() {
	s.createSpot("A-08", 2)
	booking, err := CreateBooking(s.user.ID, s.bookingParams("A-08"))
	s.Require().NoError(err)

	paid, err := MarkBookingPaid(booking.BookingID)
	s.Require().NoError(err)
	s.True(paid.IsPaid)
	s.Equal(types.BOOKING_PAID, paid.Status)
	s.Require().NotNil(paid.EntryToken)

	again, err := MarkBookingPaid(booking.BookingID)
	s.Require().NoError(err)
	s.Require().NotNil(again.EntryToken)
	s.Equal(*paid.EntryToken, *again.EntryToken)
}

func (s *HelpersTestSuite) TestValidateScanRejectsUnpaidWithoutMutation() {
	s.createSpot("A-09", 2)
	booking, err := CreateBooking(s.user.ID, s.bookingParams("A-09"))
	s.Require().NoError(err)

	_, err = ValidateScan(booking.BookingID)
	s.Equal(types.ERR_PAYMENT_REQUIRED, types.KindOf(err))

	stored, err := GetBooking(booking.BookingID)
	s.NoError(err)
	s.False(stored.EntryScanned)
	s.Nil(stored.ScanTimestamp)
	s.Equal(types.BOOKING_CREATED, stored.Status)
}

func (s *HelpersTestSuite) TestValidateScanConsumesOnce() {
	s.createSpot("A-10", 2)
	booking, err := CreateBooking(s.user.ID, s.bookingParams("A-10"))
	s.Require().NoError(err)
	_, err = MarkBookingPaid(booking.BookingID)
	s.Require().NoError(err)

	first, err := ValidateScan(booking.BookingID)
	s.Require().NoError(err)
	s.True(first.EntryScanned)
	s.Equal(types.BOOKING_APPROVED, first.Status)
	s.Require().NotNil(first.ScanTimestamp)

	second, err := ValidateScan(booking.BookingID)
	s.Require().NoError(err)
	s.True(second.EntryScanned)
	s.Equal(first.ScanTimestamp.Unix(), second.ScanTimestamp.Unix())
}

func (s *HelpersTestSuite) TestApproveBookingOverridesUnpaid() {
	s.createSpot("A-11", 2)
	booking, err := CreateBooking(s.user.ID, s.bookingParams("A-11"))
	s.Require().NoError(err)

	approved, err := ApproveBooking(booking.BookingID)
	s.Require().NoError(err)
	s.True(approved.EntryScanned)
	s.Equal(types.BOOKING_APPROVED, approved.Status)
	s.False(approved.IsPaid)
}

func (s *HelpersTestSuite) TestScanStatusUnknownBooking() {
	_, err := CheckScanStatus("9f9d1b8e-0000-4000-8000-000000000000")
	s.Equal(types.ERR_NOT_FOUND, types.KindOf(err))
}

func (s *HelpersTestSuite) TestSweepReclaimsExpiredReservations() {
	s.createSpot("A-12", 2)
	past := time.Now().Add(-time.Hour)
	err := s.db.
		Model(&models.Spot{}).
		Where("spot_id = ?", "A-12").
		Updates(map[string]any{"status": types.SPOT_RESERVED, "reserved_until": past}).
		Error
	s.Require().NoError(err)

	reclaimed, err := SweepExpiredReservations()
	s.NoError(err)
	s.GreaterOrEqual(reclaimed, int64(1))

	spot, err := GetSpot("A-12")
	s.NoError(err)
	s.Equal(types.SPOT_FREE, spot.Status)
	s.Nil(spot.ReservedUntil)
}

func (s *HelpersTestSuite) TestReleaseSpotUnknown() {
	err := ReleaseSpot("NO-SUCH-SPOT")
	s.Equal(types.ERR_NOT_FOUND, types.KindOf(err))
}

func (s *HelpersTestSuite) TestEntryTokenRoundTrip() {
	bookingId := "c0ffee00-0000-4000-8000-000000000001"
	token, err := MintEntryToken(bookingId)
	s.Require().NoError(err)
	s.NotEmpty(token)

	decoded, err := DecodeEntryToken(token)
	s.NoError(err)
	s.Equal(bookingId, decoded)

	other, err := MintEntryToken(bookingId)
	s.Require().NoError(err)
	s.NotEqual(token, other)
}

func (s *HelpersTestSuite) TestEntryTokenRejectsTampering() {
	token, err := MintEntryToken("c0ffee00-0000-4000-8000-000000000002")
	s.Require().NoError(err)

	tampered := token[:len(token)-2] + "00"
	if tampered == token {
		tampered = token[:len(token)-2] + "11"
	}
	_, err = DecodeEntryToken(tampered)
	s.Error(err)

	_, err = DecodeEntryToken("not-hex")
	s.Error(err)

	_, err = DecodeEntryToken(fmt.Sprintf("%x", []byte("short")))
	s.Error(err)
}

func TestHelpersTestSuite(t *testing.T) {
	suite.Run(t, new(HelpersTestSuite))
}
