package v1

import (
	"github.com/gin-gonic/gin"

	"mediavault/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	group.POST("/media/uploads", r.handlers.Media.InitiateUpload)
	group.POST("/media/uploads/complete", r.handlers.Media.CompleteUpload)
	group.GET("/media", r.handlers.Media.List)
	group.GET("/media/search", r.handlers.Media.Search)
	group.POST("/media/delete", r.handlers.Media.Delete)
	group.POST("/media/rename", r.handlers.Media.Rename)

	if r.handlers.LocalUpload != nil {
		group.PUT("/local/uploads/:session/parts/:part", r.handlers.LocalUpload.PutPart)
	}
}
