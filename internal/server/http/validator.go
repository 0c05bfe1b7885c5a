package http

import (
	"fmt"
	"reflect"
	"strings"

	"chessai/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localValidated = "validated"
	localBody      = "validatedBody"
)

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// requestFor picks the body type of a POST or PUT route, nil for routes without a body
func requestFor(method, path string) any {
	switch {
	case strings.HasSuffix(path, "/search") && method == fiber.MethodPost:
		return &core.SearchRequest{}
	case strings.HasSuffix(path, "/games") && method == fiber.MethodPost:
		return &core.CreateGameRequest{}
	case strings.HasSuffix(path, "/players") && method == fiber.MethodPut:
		return &core.ConfigurePlayersRequest{}
	case strings.HasSuffix(path, "/moves") && method == fiber.MethodPost:
		return &core.MoveRequest{}
	case strings.HasSuffix(path, "/undo") && method == fiber.MethodPost:
		return &core.UndoRequest{}
	default:
		return nil
	}
}

// validationMiddleware parses and validates request bodies before any handler runs
func validationMiddleware(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodGet || method == fiber.MethodDelete || method == fiber.MethodOptions {
		return c.Next()
	}

	requestType := requestFor(method, c.Path())
	if requestType == nil {
		return c.Next()
	}

	if err := c.BodyParser(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid request body",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	if err := validate.Struct(requestType); err != nil {
		var details []string
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				details = append(details, describe(fe))
			}
		} else {
			details = append(details, err.Error())
		}

		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: strings.Join(details, "; "),
		})
	}

	c.Locals(localBody, requestType)
	c.Locals(localValidated, true)

	return c.Next()
}

// describe renders one field error for clients
func describe(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", fe.Field(), fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", fe.Field(), fe.Param(), unit)
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// validatedBody fetches the body stored by validationMiddleware. When ok is
// false the error reply has been written and err is what the handler returns.
func validatedBody[T any](c *fiber.Ctx) (T, bool, error) {
	var zero T

	validated, _ := c.Locals(localValidated).(bool)
	body, isT := c.Locals(localBody).(*T)
	if !validated || !isT || body == nil {
		return zero, false, c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation bypass detected",
			Code:  core.ErrInternalError,
		})
	}
	return *body, true, nil
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
