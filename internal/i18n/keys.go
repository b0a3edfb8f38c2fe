// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthForbidden          = "auth.forbidden"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Users
	KeyUserNotFound       = "user.not_found"
	KeyUserProfileUpdated = "user.profile_updated"

	// Products
	KeyProductCreated            = "product.created"
	KeyProductActivated          = "product.activated"
	KeyProductRemoved            = "product.removed"
	KeyProductTransferred        = "product.transferred"
	KeyProductNotFound           = "product.not_found"
	KeyProductVerificationFailed = "product.verification_failed"
	KeyProductSimilarImages      = "product.similar_images"
	KeyProductTagMissing         = "product.tag_missing"
	KeyProductTagMismatch        = "product.tag_mismatch"
	KeyProductInvalidTransition  = "product.invalid_transition"
	KeyProductAlreadySold        = "product.already_sold"

	// Ledger
	KeyBlockchainValid   = "blockchain.valid"
	KeyBlockchainInvalid = "blockchain.invalid"

	// Payments
	KeyPaymentFailed = "payment.failed"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"

	// Server
	KeyServerError = "server.internal_error"
)
