package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"petromanage/internal/model"
	"petromanage/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: message})
}

// writeError renders err. Request-level APIErrors carry their own status;
// taxonomy errors are answered with the endpoint's rejection status; anything
// else is an internal failure and its text never reaches the client.
func writeError(w http.ResponseWriter, err error, rejectStatus int) {
	status := http.StatusInternalServerError
	body := model.ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
		if kind, ok := model.KindOf(apiErr.Err); ok {
			body.Category = kind.Category
		}
	} else if kind, ok := model.KindOf(err); ok {
		status = rejectStatus
		body.Code = kind.Code
		body.Category = kind.Category
		body.Message = model.MessageOf(err)
	} else {
		slog.Error("unhandled error in writeError", "error", err)
	}

	body.Error = http.StatusText(status)
	writeJSON(w, status, body)
}
