package control

import (
	"encoding/json"
	"net/http"

	"github.com/netkit-project/netkit/internal/apierr"
)

// parseRequest decodes the JSON body into v, mirroring the teacher's
// daemon.ParseRequest helper.
func parseRequest(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apierr.New(apierr.InvalidArgument, "malformed request body: %s", err)
	}
	return nil
}

// sendResponse writes v as a 200 JSON body, mirroring daemon.SendResponse.
func sendResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// sendError writes err as a JSON {kind, message} body with an HTTP status
// derived from its Kind, mirroring daemon.SendError.
func sendError(w http.ResponseWriter, err error) {
	e := apierr.As(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(e.Kind))
	_ = json.NewEncoder(w).Encode(e)
}

func statusFor(kind apierr.Kind) int {
	switch kind {
	case apierr.InvalidArgument:
		return http.StatusBadRequest
	case apierr.NotFound:
		return http.StatusNotFound
	case apierr.AlreadyExists, apierr.AddressConflict:
		return http.StatusConflict
	case apierr.Privilege:
		return http.StatusForbidden
	case apierr.ResourceExhausted:
		return http.StatusInsufficientStorage
	case apierr.Timeout:
		return http.StatusGatewayTimeout
	case apierr.KernelError, apierr.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
