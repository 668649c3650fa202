// Package handlers implements the HTTP endpoint handlers for the risk
// analysis API.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/finsentry/aml-insight/pkg/errors"
	"github.com/finsentry/aml-insight/pkg/types/common"
)

// maxBodyBytes bounds request bodies; every endpoint takes small JSON.
const maxBodyBytes = 1 << 20

// writeJSON sanitizes data and writes it with the given status code. All
// response payloads pass through here so non-finite aggregate values can
// never break encoding at the boundary.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(common.Sanitize(data))
	}
}

// writeSuccess writes payload with a success status marker.
func writeSuccess(w http.ResponseWriter, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["status"] = "success"
	writeJSON(w, http.StatusOK, payload)
}

// writeAppError maps an error to its HTTP status and writes the standard
// error body. Unclassified errors are masked as internal failures.
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Internal("internal server error")
	}

	body := map[string]any{
		"status":  "error",
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Detail != "" {
		body["detail"] = appErr.Detail
	}
	writeJSON(w, errors.HTTPStatusForCode(appErr.Code), body)
}

// decodeJSON reads and decodes a request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.InvalidParam("unable to read request body")
	}
	if len(body) == 0 {
		return errors.InvalidParam("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.InvalidParam("malformed JSON request body").WithCause(err)
	}
	return nil
}

// checkPartnerID validates the identifier shape. A malformed identifier can
// never resolve, so it is reported as not found rather than rejected as a bad
// request; only an absent identifier is a request error.
func checkPartnerID(id string) error {
	if id == "" {
		return errors.InvalidParam("partner_id is required")
	}
	if err := uuid.Validate(id); err != nil {
		return errors.PartnerNotFound(id)
	}
	return nil
}
