package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo pairs an error code with a user-facing message.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps database and infrastructure errors to user-facing
// ErrorInfo values. Sensitive details stay out of the message; the
// context string (e.g. "create order") steers the wording.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "An internal error occurred",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// PostgreSQL constraint violations

	// unique_violation (23505)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStr)
	}

	// foreign_key_violation (23503)
	if strings.Contains(errStrLower, "foreign key constraint") {
		return parseForeignKeyError(errStr, context)
	}

	// not_null_violation (23502)
	if strings.Contains(errStrLower, "null value") && strings.Contains(errStrLower, "violates not-null constraint") {
		return parseNotNullError(errStr)
	}

	// check_violation (23514)
	if strings.Contains(errStrLower, "check constraint") {
		return ErrorInfo{
			Code:    ValidationInvalidInput,
			Message: "Invalid input",
		}
	}

	// connectivity
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "Failed to reach an external service. Please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "whatsapp") || strings.Contains(errLower, "idx_users_whatsapp") {
		return ErrorInfo{
			Code:    AuthWhatsAppExists,
			Message: "This WhatsApp number is already registered",
		}
	}

	if strings.Contains(errLower, "email") || strings.Contains(errLower, "idx_users_email") {
		return ErrorInfo{
			Code:    AuthEmailAlreadyExists,
			Message: "This email is already registered",
		}
	}

	if strings.Contains(errLower, "code") || strings.Contains(errLower, "idx_discounts_code") {
		return ErrorInfo{
			Code:    DiscountCodeExists,
			Message: "This discount code already exists",
		}
	}

	if strings.Contains(errLower, "order_number") || strings.Contains(errLower, "idx_orders_order_number") {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "Order number collision, please retry",
		}
	}

	if strings.Contains(errLower, "pkey") || strings.Contains(errLower, "primary key") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "This record already exists. Please try again",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "This record already exists",
	}
}

func parseForeignKeyError(errStr string, context string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "still referenced") || strings.Contains(errLower, "is still referenced by") {
		if strings.Contains(context, "product") {
			return ErrorInfo{
				Code:    ResourceConflict,
				Message: "This product has related orders and cannot be deleted",
			}
		}
		if strings.Contains(context, "user") {
			return ErrorInfo{
				Code:    ResourceConflict,
				Message: "This user has related data and cannot be deleted",
			}
		}
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "This record has related data and cannot be deleted",
		}
	}

	if strings.Contains(errLower, "user_id") || strings.Contains(errLower, "fk_users") {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: "User does not exist",
		}
	}
	if strings.Contains(errLower, "product_id") || strings.Contains(errLower, "fk_products") {
		return ErrorInfo{
			Code:    ProductNotFound,
			Message: "Product does not exist",
		}
	}
	if strings.Contains(errLower, "order_id") || strings.Contains(errLower, "fk_orders") {
		return ErrorInfo{
			Code:    OrderNotFound,
			Message: "Order does not exist",
		}
	}

	return ErrorInfo{
		Code:    ResourceNotFound,
		Message: "Referenced record not found",
	}
}

func parseNotNullError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "email") {
		return ErrorInfo{Code: ValidationRequired, Message: "Email is required"}
	}
	if strings.Contains(errLower, "whatsapp") {
		return ErrorInfo{Code: ValidationRequired, Message: "WhatsApp number is required"}
	}
	if strings.Contains(errLower, "password") {
		return ErrorInfo{Code: ValidationRequired, Message: "Password is required"}
	}
	if strings.Contains(errLower, "name") {
		return ErrorInfo{Code: ValidationRequired, Message: "Name is required"}
	}

	return ErrorInfo{
		Code:    ValidationRequired,
		Message: "A required field is missing",
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "product") {
		return "Product not found"
	}
	if strings.Contains(contextLower, "user") {
		return "User not found"
	}
	if strings.Contains(contextLower, "cart") {
		return "Cart item not found"
	}
	if strings.Contains(contextLower, "order") {
		return "Order not found"
	}
	if strings.Contains(contextLower, "discount") {
		return "Discount code not found"
	}
	if strings.Contains(contextLower, "address") {
		return "Address not found"
	}

	return "Requested record not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "create") {
		return "Failed to create the record. Please try again later"
	}
	if strings.Contains(contextLower, "update") {
		return "Failed to update the record. Please try again later"
	}
	if strings.Contains(contextLower, "delete") {
		return "Failed to delete the record. Please try again later"
	}

	return "An internal error occurred. Please try again later"
}

// ParseAndRespond parses an error and writes the standard response.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
