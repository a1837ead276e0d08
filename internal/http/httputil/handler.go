package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler is implemented by route groups mounted under the versioned
// API prefix. Root names the group path; SetRoutes attaches endpoints to
// the public, authenticated and admin groups.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub, private, admin *gin.RouterGroup)
}
