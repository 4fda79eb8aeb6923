package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	appvalidation "github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/validation"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
)

const maxBodyBytes = 1 << 20

// fieldErrors maps a failing JSON field to the API error reported for it.
type fieldErrors map[string]constants.APIError

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the handler may
// continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, byField fieldErrors) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return false
	}

	if err := appvalidation.Validate(dst); err != nil {
		httputils.WriteAPIError(w, r, validationError(err, byField))
		return false
	}
	return true
}

func validationError(err error, byField fieldErrors) constants.APIError {
	failures := appvalidation.Failures(err)
	if len(failures) == 0 {
		return constants.ErrInvalidRequestBody
	}
	for _, f := range failures {
		if mapped, ok := byField[f.Field]; ok {
			return mapped
		}
	}
	f := failures[0]
	return constants.ErrInvalidRequestBody.WithMessage(fmt.Sprintf("%s failed %s validation", f.Field, f.Tag))
}
