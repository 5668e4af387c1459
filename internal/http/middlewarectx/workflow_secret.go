package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
)

// WorkflowSecretHeader - заголовок с общим секретом workflow.
const WorkflowSecretHeader = "X-Workflow-Secret"

// WorkflowSecret пропускает только запросы с верным общим секретом.
func WorkflowSecret(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(WorkflowSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				log.Warn("workflow request with invalid secret",
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				response.Fail(w, r, http.StatusUnauthorized, response.MsgUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
