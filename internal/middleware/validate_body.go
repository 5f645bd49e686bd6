package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies read for validation.
const maxBodyBytes = 1 << 20

// BodyValidator checks a request body against a named schema. *services.Validator implements it.
type BodyValidator interface {
	Validate(name string, body []byte) error
}

// ValidateBody rejects requests whose JSON body does not match the named schema with 422.
// It reads the body, then replaces r.Body so the handler can decode it again.
func ValidateBody(v BodyValidator, schema string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			r.Body.Close()
			if err != nil {
				var tooBig *http.MaxBytesError
				if errors.As(err, &tooBig) {
					http.Error(w, `{"error":"request body too large"}`, http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			if len(bytes.TrimSpace(bodyBytes)) == 0 {
				bodyBytes = []byte("{}")
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			if err := v.Validate(schema, bodyBytes); err != nil {
				msg, _ := json.Marshal(err.Error())
				http.Error(w, fmt.Sprintf(`{"error":%s}`, msg), http.StatusUnprocessableEntity)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
