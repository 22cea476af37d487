package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-transcript-api/internal/middleware"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// queryInt reads a positive integer query parameter, falling back on absent
// or malformed values.
func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// exportFormat resolves the ?format= query, defaulting to PDF.
func exportFormat(c *gin.Context) (models.ExportFormat, error) {
	raw := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", string(models.ExportFormatPDF))))
	format := models.ExportFormat(raw)
	if !format.Valid() {
		return "", appErrors.Clone(appErrors.ErrUnsupportedFormat, "format must be pdf or csv")
	}
	return format, nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
