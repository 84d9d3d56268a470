package echomw

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reoring/goedi/middleware"
)

// EncodeEDI maps the request body onto o.Model, stores the Encoded result in
// the request context on success, or returns the issue payload.
func EncodeEDI(o middleware.Options) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			enc, err := middleware.Encode(req.Context(), req.Body, req.Header.Get(echo.HeaderContentType), o)
			if err != nil {
				return c.JSON(middleware.Status(err), middleware.ErrorPayload(err))
			}
			c.SetRequest(req.WithContext(middleware.ContextWithEncoded(req.Context(), enc)))
			return next(c)
		}
	}
}

// GetEncoded fetches the Encoded result from echo.Context.
func GetEncoded(c echo.Context) (middleware.Encoded, bool) {
	return middleware.EncodedFromContext(c.Request().Context())
}

// Respond writes the Encoded result stored by EncodeEDI.
func Respond(c echo.Context) error {
	enc, ok := GetEncoded(c)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "no encoded body in context")
	}
	return c.Blob(http.StatusOK, enc.ContentType, enc.Body)
}
