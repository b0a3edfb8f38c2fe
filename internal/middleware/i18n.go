// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/i18n"
)

func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", parseAcceptLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// Handle cases like "zh-TW,zh;q=0.9,en;q=0.8"
func parseAcceptLanguage(header string) string {
	if header == "" {
		return i18n.DefaultLanguage
	}

	first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	switch first {
	case "zh-TW", "zh-Hant", "zh_TW", "zh":
		return "zh_TW"
	case "en", "en-US", "en-GB":
		return "en"
	}

	if i18n.IsSupported(first) {
		return first
	}
	return i18n.DefaultLanguage
}
