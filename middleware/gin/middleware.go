package ginmw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reoring/goedi/middleware"
)

// EncodeEDI maps the request body onto o.Model, stores the Encoded result in
// the request context on success, or aborts with the issue payload.
func EncodeEDI(o middleware.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		enc, err := middleware.Encode(c.Request.Context(), c.Request.Body, c.GetHeader("Content-Type"), o)
		if err != nil {
			c.AbortWithStatusJSON(middleware.Status(err), middleware.ErrorPayload(err))
			return
		}
		c.Request = c.Request.WithContext(middleware.ContextWithEncoded(c.Request.Context(), enc))
		c.Next()
	}
}

// GetEncoded fetches the Encoded result from gin.Context.
func GetEncoded(c *gin.Context) (middleware.Encoded, bool) {
	return middleware.EncodedFromContext(c.Request.Context())
}

// Respond writes the Encoded result stored by EncodeEDI.
func Respond(c *gin.Context) {
	enc, ok := GetEncoded(c)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, enc.ContentType, enc.Body)
}
