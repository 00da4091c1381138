package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// The storefront client maps these codes to display messages.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong whatsapp/password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthWhatsAppExists     = "AUTH_WHATSAPP_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzAccessDenied = "AUTHZ_ACCESS_DENIED"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Product (PRODUCT_) ====================
	ProductNotFound         = "PRODUCT_NOT_FOUND"
	ProductInactive         = "PRODUCT_INACTIVE"
	ProductOutOfStock       = "PRODUCT_OUT_OF_STOCK"
	ProductInvalidCategory  = "PRODUCT_INVALID_CATEGORY"
	ProductInvalidSelection = "PRODUCT_INVALID_SELECTION" // customization does not satisfy the schema

	// ==================== Cart (CART_) ====================
	CartItemNotFound  = "CART_ITEM_NOT_FOUND"
	CartEmpty         = "CART_EMPTY"
	CartInvalidQty    = "CART_INVALID_QUANTITY"
	CartTokenRequired = "CART_TOKEN_REQUIRED" // guest cart call without a guest token

	// ==================== Order (ORDER_) ====================
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInvalidStatus     = "ORDER_INVALID_STATUS"
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"
	OrderAddressRequired   = "ORDER_ADDRESS_REQUIRED"
	OrderPickupRequired    = "ORDER_PICKUP_REQUIRED" // pickup orders need location and date

	// ==================== Discount (DISCOUNT_) ====================
	DiscountNotFound    = "DISCOUNT_NOT_FOUND"
	DiscountInactive    = "DISCOUNT_INACTIVE"
	DiscountExpired     = "DISCOUNT_EXPIRED"
	DiscountNotStarted  = "DISCOUNT_NOT_STARTED"
	DiscountMinPurchase = "DISCOUNT_MIN_PURCHASE"
	DiscountCodeExists  = "DISCOUNT_CODE_EXISTS"

	// ==================== Address (ADDRESS_) ====================
	AddressNotFound = "ADDRESS_NOT_FOUND"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
