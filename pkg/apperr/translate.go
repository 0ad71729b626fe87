package apperr

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"github.com/eduflowhub/eduflow/pkg/slogx"
)

// Response is the error envelope written to clients.
type Response struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Errors  []string `json:"errors,omitempty"`
}

// Translate converts any error into a status code and the client-visible
// envelope. Internal causes never reach the envelope.
func Translate(err error) (int, Response) {
	ae := As(err)

	resp := Response{
		Success: false,
		Message: ae.Message,
		Code:    ae.Code,
	}

	if ae.Kind == KindInternal {
		resp.Message = "internal server error"
		resp.Code = CodeInternal
	}

	if len(ae.Fields) > 0 {
		keys := make([]string, 0, len(ae.Fields))
		for k := range ae.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			resp.Errors = append(resp.Errors, k+": "+ae.Fields[k])
		}
	}

	return Status(ae.Kind), resp
}

// Write renders err as the JSON error envelope. Internal errors are logged
// with their cause using the request-scoped logger.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := Translate(err)

	log := slogx.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Int("status", status), slog.Any("error", err))
	} else {
		log.Debug("request rejected", slog.Int("status", status), slog.String("error_code", resp.Code))
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
