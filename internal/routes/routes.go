package routes

import (
	"net/http"

	"umlexport/internal/handlers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.Engine, exportHandler *handlers.ExportHandler) {
	api := router.Group("/api/v1")

	exportRoutes := NewExportRoutes(exportHandler)
	exportRoutes.RegisterRoutes(api)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
}
