package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"time"

	"pms/src/db"
	"pms/src/lib"
	"pms/src/models"
	"pms/src/types"
	"pms/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yeqown/go-qrcode"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := utils.CreateBooking(userId, &body)
			if err != nil {
				log.Printf("Error creating booking for spot [%s]: %s\n", body.SpotID, err.Error())
				abortWithAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{
				"message":     "Booking confirmed. Proceed to payment.",
				"booking_id":  booking.BookingID,
				"total_price": booking.TotalPrice,
			})
		}).
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			bookings, err := utils.GetOwnBookings(userId)
			if err != nil {
				abortWithAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			booking, ok := ownBooking(ctx)
			if !ok {
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		POST("/bookings/:id/checkout", func(ctx *gin.Context) {
			booking, ok := ownBooking(ctx)
			if !ok {
				return
			}
			if booking.IsPaid {
				ctx.JSON(http.StatusOK, gin.H{"message": "Already marked as paid"})
				return
			}
			sessionUrl, sessionId, err := lib.CreateBookingCheckout(booking)
			if err != nil {
				log.Printf("Error creating checkout session for Booking [%s]: %s\n", booking.BookingID, err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": "Error creating checkout session"})
				return
			}
			db := db.GetDb()
			if err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{BookingID: booking.BookingID}).
				Update("checkout_session_id", sessionId).
				Error; err != nil {
				log.Printf("Could not store checkout session for Booking [%s]: %s\n", booking.BookingID, err.Error())
			}
			ctx.JSON(http.StatusOK, gin.H{"session_url": sessionUrl})
		}).
		PUT("/bookings/:id/paid", func(ctx *gin.Context) {
			var params types.BookingURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			booking, err := utils.MarkBookingPaid(params.BookingID)
			if err != nil {
				log.Printf("Failed to mark Booking [%s] as paid: %s\n", params.BookingID, err.Error())
				abortWithAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"message": "Booking marked as paid",
				"token":   booking.EntryToken,
			})
		}).
		GET("/bookings/:id/scan-status", func(ctx *gin.Context) {
			var params types.BookingURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			status, err := utils.CheckScanStatus(params.BookingID)
			if err != nil {
				abortWithAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, status)
		}).
		GET("/bookings/:id/code", func(ctx *gin.Context) {
			booking, ok := ownBooking(ctx)
			if !ok {
				return
			}
			if !booking.IsPaid || booking.EntryToken == nil {
				ctx.JSON(http.StatusPaymentRequired, gin.H{"error": "booking is not paid"})
				return
			}

			filename := fmt.Sprintf("bookingcode_%s", booking.BookingID)
			wd, err := os.Getwd()
			if err != nil {
				log.Printf("Could not read working directory: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			tempdir := os.Getenv("TEMP_DIR")
			filepath := path.Join(wd, "..", tempdir, fmt.Sprintf("%s.jpeg", filename))

			if rd := lib.GetRedisClient(); rd != nil {
				cached, err := rd.Get(context.Background(), filename).Result()
				if err != nil && !errors.Is(err, redis.Nil) {
					log.Printf("Error reading from cache: %s\n", err.Error())
				}
				if cached != "" {
					ctx.FileAttachment(cached, "entrycode.jpeg")
					return
				}
			}

			qrc, err := qrcode.New(*booking.EntryToken)
			if err != nil {
				log.Printf("Could not encode entry code for Booking [%s]: %s\n", booking.BookingID, err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": "Error rendering entry code"})
				return
			}
			if err = qrc.Save(filepath); err != nil {
				log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": "Error rendering entry code"})
				return
			}
			if rd := lib.GetRedisClient(); rd != nil {
				rd.SetEx(context.Background(), filename, filepath, 2*time.Hour)
			}
			ctx.FileAttachment(filepath, "entrycode.jpeg")
		})
	return g
}

// ownBooking resolves the :id param to a booking the caller may see:
// the booking owner or an admin.
func ownBooking(ctx *gin.Context) (*models.Booking, bool) {
	var params types.BookingURIParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	booking, err := utils.GetBooking(params.BookingID)
	if err != nil {
		abortWithAPIError(ctx, err)
		return nil, false
	}
	userId := ctx.GetUint("id")
	if booking.UserID != userId && ctx.GetString("role") != "admin" {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return nil, false
	}
	return booking, true
}
