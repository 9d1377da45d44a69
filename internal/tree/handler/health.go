package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/mongokit/pkg/component/storage"
	"github.com/kart-io/mongokit/pkg/utils/response"
)

// HealthChecker checks every registered storage client.
type HealthChecker interface {
	HealthCheckAll(ctx context.Context) map[string]storage.HealthStatus
}

// ClientHealth is the health of one storage client.
type ClientHealth struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthHandler serves /healthz.
type HealthHandler struct {
	checker HealthChecker
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler. Checks are bounded by timeout.
func NewHealthHandler(checker HealthChecker, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{checker: checker, timeout: timeout}
}

// Check answers 200 when every storage client is healthy and 503 otherwise.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	statuses := h.checker.HealthCheckAll(ctx)
	clients := make([]ClientHealth, 0, len(statuses))
	healthy := true
	for _, st := range statuses {
		ch := ClientHealth{Name: st.Name, Healthy: st.Healthy, LatencyMS: st.Latency.Milliseconds()}
		if st.Error != nil {
			ch.Error = st.Error.Error()
		}
		healthy = healthy && st.Healthy
		clients = append(clients, ch)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })

	if !healthy {
		r := response.ErrWithLang(ErrUnhealthy, response.Lang(c))
		r.Data = clients
		response.JSON(c, r)
		return
	}
	response.OK(c, clients)
}
