package history

import (
	"context"

	"github.com/gin-gonic/gin"
)

type originKey struct{}

// Origin is the client address and agent stamped onto records.
type Origin struct {
	IP        string
	UserAgent string
}

// WithOrigin attaches o to ctx.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

func originFromContext(ctx context.Context) Origin {
	if ctx == nil {
		return Origin{}
	}
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}

// CaptureOrigin stores the caller's IP and user agent in the request context.
func CaptureOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithOrigin(c.Request.Context(), Origin{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
