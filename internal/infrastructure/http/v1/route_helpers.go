package v1

import (
	"github.com/gin-gonic/gin"
)

// DocumentRouteHandler is implemented by every document handler.
type DocumentRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
}

// DocumentApproveHandler is implemented by documents with an approval step.
type DocumentApproveHandler interface {
	Approve(c *gin.Context)
}

// RegisterDocumentRoutes registers list/create/get for a document. Documents are
// immutable once created, so there are no update or delete routes. If the
// handler implements DocumentApproveHandler, POST /:id/approve is registered too.
func RegisterDocumentRoutes(group *gin.RouterGroup, handler DocumentRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)

	if approver, ok := handler.(DocumentApproveHandler); ok {
		group.POST("/:id/approve", approver.Approve)
	}
}
