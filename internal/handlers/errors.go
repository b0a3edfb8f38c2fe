// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/secondhand/marketplace-backend/internal/i18n"
	"github.com/secondhand/marketplace-backend/internal/services"
	"github.com/secondhand/marketplace-backend/internal/utils"
)

// respondError maps service errors onto API responses. Anything unrecognised
// is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var verr *services.VerificationError
	if errors.As(err, &verr) {
		if verr.IsImageRejection() {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProductSimilarImages), gin.H{
				"reason":             verr.Reason,
				"similar_product_id": verr.SimilarProductID,
			})
			return
		}
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProductVerificationFailed), gin.H{
			"issues": verr.Issues,
		})
		return
	}

	if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	switch {
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, "product")
	case errors.Is(err, services.ErrUserNotFound):
		utils.NotFoundResponse(c, "user")
	case errors.Is(err, services.ErrAuthRequired):
		utils.UnauthorizedResponse(c, "")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, services.ErrUnauthorized):
		utils.ForbiddenResponse(c, "")
	case errors.Is(err, services.ErrEmailTaken):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyAuthUserExists), nil)
	case errors.Is(err, services.ErrTagMissing):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProductTagMissing), nil)
	case errors.Is(err, services.ErrTagMismatch):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProductTagMismatch), nil)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProductInvalidTransition), nil)
	case errors.Is(err, services.ErrProductSold):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyProductAlreadySold))
	case errors.Is(err, services.ErrPaymentFailed):
		utils.ErrorResponse(c, http.StatusPaymentRequired, "PAYMENT_FAILED", i18n.T(lang, i18n.KeyPaymentFailed), nil)
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

func callerID(c *gin.Context) string {
	userID, _ := utils.GetUserIDFromContext(c)
	return userID
}
