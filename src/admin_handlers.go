package main

import (
	"log"
	"net/http"

	"pms/src/types"
	"pms/src/utils"

	"github.com/gin-gonic/gin"
)

// adminHandlers is the privileged surface. It is mounted on its own
// router group behind the admin role middleware so the override cannot
// be reached through the ordinary scan path.
func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/spots", func(ctx *gin.Context) {
			var body types.CreateSpotRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			spot, err := utils.CreateSpot(&body)
			if err != nil {
				log.Printf("Error creating spot [%s]: %s\n", body.SpotID, err.Error())
				abortWithAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": spot.ToAPI()})
		}).
		PUT("/spots/:id/release", func(ctx *gin.Context) {
			var params types.SpotURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := utils.ReleaseSpot(params.SpotID); err != nil {
				log.Printf("Error releasing spot [%s]: %s\n", params.SpotID, err.Error())
				abortWithAPIError(ctx, err)
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		PUT("/bookings/:id/approve", func(ctx *gin.Context) {
			var params types.BookingURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			booking, err := utils.ApproveBooking(params.BookingID)
			if err != nil {
				log.Printf("Failed to approve Booking [%s]: %s\n", params.BookingID, err.Error())
				abortWithAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"message":    "Booking approved. Entry allowed.",
				"approved":   booking.EntryScanned,
				"scanned_at": booking.ScanTimestamp,
			})
		})
	return g
}
