package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/util"
)

// FieldError names one failing field by its JSON path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var engine = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	// bytesize accepts the sizes util.ParseSize understands, e.g. "10MB".
	_ = v.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
		_, err := util.ParseSize(fl.Field().String())
		return err == nil
	})
	return v
})

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return toSnakeCase(f.Name)
	}
	return name
}

// Validate checks s against its `validate` tags. Every failing field is
// reported, joined with "; ", under a VALIDATION_ERROR.
func Validate(s any) error {
	fields, err := collect(engine().Struct(s), true)
	if err != nil || fields == nil {
		return err
	}
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(msgs, "; ")).WithDetail("fields", fields)
}

// Var checks a single value, e.g. Var("role", role, "oneof=system user assistant").
func Var(field string, value any, tag string) error {
	fields, err := collect(engine().Var(value, tag), false)
	if err != nil || fields == nil {
		return err
	}
	fields[0].Field = field
	return errors.Validationf("%s: %s", field, fields[0].Message).WithDetail("fields", fields[:1])
}

func collect(err error, nested bool) ([]FieldError, error) {
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return nil, errors.Validation("validation failed").WithCause(err)
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if nested {
			// Drop the root type so nested fields read as messages[0].role.
			if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
				name = rest
			}
		}
		out = append(out, FieldError{Field: name, Message: describe(fe)})
	}
	return out, nil
}

var phrases = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gt":       "must be greater than %s",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"oneof":    "must be one of: %s",
	"url":      "must be a valid URL",
	"bytesize": "must be a size such as 512KB or 10MB",
}

func describe(fe validator.FieldError) string {
	p, ok := phrases[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(p, "%s") {
		return strings.Replace(p, "%s", fe.Param(), 1)
	}
	return p
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
