package tracking

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"
)

// pixelGIF is a 1x1 transparent GIF89a. Embedding pages load it via an <img>
// tag, so every outcome must still produce a valid image body.
var pixelGIF, _ = base64.StdEncoding.DecodeString(
	"R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

// writePixel sends the tracking pixel with strict no-cache headers. Only the
// status code communicates the outcome; the body never carries error text.
func writePixel(c *gin.Context, status int) {
	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = "*"
	}
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Surrogate-Control", "no-store")
	c.Data(status, "image/gif", pixelGIF)
}
