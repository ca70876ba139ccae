package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/casaluz/incidents-backend/internal/platform/ctxutil"
)

const headerUserID = "X-User-Id"

// AttachRequestContext resolves the acting user from the gateway-set
// header. Requests without a parseable id pass through with no request
// data; operations that need an acting user reject them downstream.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerUserID))
		if raw == "" {
			c.Next()
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.Next()
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID: userID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", userID.String())
		c.Next()
	}
}
