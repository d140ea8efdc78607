package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/http/response"
	"github.com/yungbote/courseflow-backend/internal/platform/ctxutil"
)

// viewerFrom builds the request identity. Requests without auth data are anonymous.
func viewerFrom(c *gin.Context) user.Viewer {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return user.Anonymous()
	}
	return user.Viewer{UserID: rd.UserID, Role: user.ParseRole(rd.Role)}
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		c.JSON(http.StatusBadRequest, response.ErrorEnvelope{
			Error: response.APIError{
				Message: "invalid " + name,
				Code:    "validation",
				Fields:  map[string]string{name: "must be a uuid"},
			},
		})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
