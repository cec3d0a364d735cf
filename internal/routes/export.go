package routes

import (
	"umlexport/internal/handlers"

	"github.com/gin-gonic/gin"
)

type ExportRoutes struct {
	handler *handlers.ExportHandler
}

func NewExportRoutes(handler *handlers.ExportHandler) *ExportRoutes {
	return &ExportRoutes{handler: handler}
}

func (r *ExportRoutes) RegisterRoutes(router *gin.RouterGroup) {
	export := router.Group("/export/spring-boot")
	{
		export.POST("", r.handler.ExportInline)
		export.POST("/preview", r.handler.Preview)
		export.POST("/:id", r.handler.ExportDiagram)
	}

	router.GET("/exports/:id", r.handler.GetExport)
}
