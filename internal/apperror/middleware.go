package apperror

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler returns the central error-translation middleware. Handlers report
// failures with c.Error; after the chain runs, the last error is translated
// and written. API paths get JSON, everything else renders the error page.
// In development the original error detail is included; in production
// unknown errors collapse to a generic message.
func Handler(log *logrus.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := Translate(c.Errors.Last().Err)

		code := CodeOf(err)
		msg := err.Error()
		if !IsOperational(err) {
			log.WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).WithError(err).Error("unhandled error")
			if !development {
				msg = "something went wrong"
			}
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			body := gin.H{"status": statusWord(code), "message": msg}
			if development && !IsOperational(err) {
				body["error"] = err.Error()
			}
			c.JSON(code, body)
			return
		}
		c.HTML(code, "error.html", gin.H{"title": "Something went wrong", "msg": msg})
	}
}

// NoRoute answers unmatched routes with a not-found operational error.
func NoRoute(c *gin.Context) {
	c.Error(NotFound("can't find %s on this server", c.Request.URL.Path)) //nolint:errcheck
}

func statusWord(code int) string {
	if code >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}
