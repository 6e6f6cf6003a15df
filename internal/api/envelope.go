package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kaziapp/taggraph/internal/http/response"
)

// EnvelopeVersion is the version stamped on every response body.
const EnvelopeVersion = response.Version

// EnvelopeTransformer wraps every huma response body in response.Envelope.
// Errors keep their kind; bodies of error statuses that are not errors are
// reported with the kind derived from the status.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.Fail(body.Code, body.Message, body.Details), nil
	case error:
		code, _ := strconv.Atoi(status)
		return response.Fail(statusToCode(code), body.Error(), nil), nil
	}

	if code, err := strconv.Atoi(status); err == nil && code >= 400 {
		return response.Fail(statusToCode(code), "request failed", v), nil
	}
	return response.OK(v), nil
}
