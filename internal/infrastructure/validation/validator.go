package validation

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// stringRules are custom tags that only apply to string fields.
var stringRules = map[string]func(string) bool{
	"notblank": func(s string) bool { return strings.TrimSpace(s) != "" },
	"http_url": IsHTTPURL,
	"plan": func(s string) bool {
		_, ok := model.ParsePlan(s)
		return ok
	},
}

func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON names so errors match request bodies.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return fld.Name
			}
			return name
		})

		for tag, rule := range stringRules {
			_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return fl.Field().Kind() == reflect.String && rule(fl.Field().String())
			})
		}
	})
	return validate
}

func Validate(s any) error {
	return Get().Struct(s)
}

// Failure is one failed rule, keyed by the JSON field name.
type Failure struct {
	Field string
	Tag   string
}

// Failures unpacks a Validate error. It returns nil for errors that did not
// come from field validation.
func Failures(err error) []Failure {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]Failure, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, Failure{Field: e.Field(), Tag: e.Tag()})
	}
	return out
}

// IsHTTPURL reports whether raw is an absolute http or https URL with a host.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && strings.TrimSpace(u.Host) != ""
}
