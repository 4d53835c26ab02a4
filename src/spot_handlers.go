package main

import (
	"net/http"

	"pms/src/types"
	"pms/src/utils"

	"github.com/gin-gonic/gin"
)

func spotHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/spots", func(ctx *gin.Context) {
			spots, err := utils.ListSpots()
			if err != nil {
				abortWithAPIError(ctx, err)
				return
			}
			data := make([]types.APIResponseSpot, 0, len(spots))
			for _, s := range spots {
				data = append(data, s.ToAPI())
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/spots/:id", func(ctx *gin.Context) {
			var params types.SpotURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			spot, err := utils.GetSpot(params.SpotID)
			if err != nil {
				abortWithAPIError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": spot.ToAPI()})
		})
	return g
}
