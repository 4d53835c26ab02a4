package main

import (
	"log"
	"net/http"

	"pms/src/types"
	"pms/src/utils"

	"github.com/gin-gonic/gin"
)

func admissionHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/admission", func(ctx *gin.Context) {
			var body types.AdmissionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("Error validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			bookingId := body.BookingID
			if body.Code != "" {
				decoded, err := utils.DecodeEntryToken(body.Code)
				if err != nil {
					log.Printf("Error decoding entry code: %s\n", err.Error())
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry code"})
					return
				}
				bookingId = decoded
			}

			booking, err := utils.ValidateScan(bookingId)
			if err != nil {
				log.Printf("Error on entry admission for Booking [%s]: %s\n", bookingId, err.Error())
				abortWithAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"accepted":   true,
				"scanned_at": booking.ScanTimestamp,
			})
		})
	return g
}
