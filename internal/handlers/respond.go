package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/pricing"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// Report validation failures under the JSON field names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	}
}

// respondError writes err as {"error": ..., "fields": ...} with the status
// of its kind. Unclassified errors are logged and hidden.
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := translate(err)
	status := apperrors.Status(appErr)

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		h.Log.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.JSON(status, body)
}

// notFound names the entity when err is a store miss.
func notFound(err error, entity string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.Wrap(apperrors.NotFound(entity), err)
	}
	return err
}

// translate maps every error the handlers see onto the client taxonomy.
func translate(err error) *apperrors.Error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return apperrors.Validation("Invalid input", validationFields(ve))
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		return apperrors.FieldError(typeErr.Field, fmt.Sprintf("Must be of type %s.", typeErr.Type))
	case errors.As(err, &syntaxErr), errors.Is(err, errBadBody):
		return apperrors.Validation("Malformed JSON body", nil)
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, models.ErrAlreadyDeactivated):
		return apperrors.Wrap(apperrors.NotFound("Resource"), err)
	case errors.Is(err, store.ErrDuplicate):
		return apperrors.Wrap(apperrors.Conflict("Resource already exists"), err)
	case errors.Is(err, store.ErrConflict):
		return apperrors.Wrap(apperrors.Conflict("Resource was modified concurrently, retry"), err)
	case errors.Is(err, store.ErrInvalidReference):
		return apperrors.Wrap(apperrors.Validation("Referenced resource does not exist", nil), err)
	case errors.Is(err, store.ErrCouponExhausted):
		return apperrors.FieldError("code", capitalize(pricing.ErrCouponUsageExhausted.Error()))
	case errors.Is(err, pricing.ErrCouponInactive),
		errors.Is(err, pricing.ErrCouponNotYetValid),
		errors.Is(err, pricing.ErrCouponExpired),
		errors.Is(err, pricing.ErrCouponUsageExhausted),
		errors.Is(err, pricing.ErrOrderBelowMinimum):
		return apperrors.FieldError("code", capitalize(err.Error()))
	case errors.Is(err, pricing.ErrCouponAlreadyApplied):
		return apperrors.Wrap(apperrors.Conflict("Order already has a coupon"), err)
	case errors.Is(err, pricing.ErrInvalidCount):
		return apperrors.FieldError("count", capitalize(err.Error()))
	case errors.Is(err, pricing.ErrProductUnavailable), errors.Is(err, pricing.ErrNoItems):
		return apperrors.FieldError("items", capitalize(err.Error()))
	}

	return apperrors.Wrap(&apperrors.Error{Kind: apperrors.KindInternal}, err)
}

var errBadBody = errors.New("malformed body")

// bindJSON binds and validates the request body into dst.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var ve validator.ValidationErrors
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &ve) || errors.As(err, &typeErr) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func validationFields(ve validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters or items.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters or items.", fe.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("Must be %s %s.", fe.Tag(), fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	case "eqfield":
		return fmt.Sprintf("Must match %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
