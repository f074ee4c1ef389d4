package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ErrorBody is the 400 payload for request validation failures. Message keeps
// the {"message": ...} contract every other error body carries.
type ErrorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Fields  map[string][]string `json:"fields"`
}

// ErrorResponse flattens validator errors into field -> failed rules, with the
// rule parameter appended ("max=254"). Non-validator errors pass through as text.
func ErrorResponse(err error) ErrorBody {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ErrorBody{Message: err.Error(), Error: err.Error(), Fields: map[string][]string{}}
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if p := fe.Param(); p != "" {
			rule += "=" + p
		}
		fields[fe.Field()] = append(fields[fe.Field()], rule)
	}
	return ErrorBody{Message: "Invalid request", Error: "validation_failed", Fields: fields}
}
