package http

import (
	"net/http"
	"testing"

	"trestle/internal/auth"
	"trestle/internal/club"
	"trestle/internal/config"
	"trestle/internal/outbox"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func routeTable(t *testing.T) map[string]bool {
	t.Helper()

	cfg := config.Config{APIKey: "test-key"}
	h := NewRouter(cfg, nil, auth.NewJWT("secret"), outbox.NewService(outbox.NewMemoryRepository()), club.NewService(nil))
	r, ok := h.(chi.Router)
	require.True(t, ok)

	routes := make(map[string]bool)
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)
	return routes
}

func TestRouterRegistersAppointmentRoutes(t *testing.T) {
	routes := routeTable(t)

	for _, want := range []string{
		"POST /clubs/{clubID}/appointments",
		"GET /clubs/{clubID}/appointments",
		"GET /clubs/{clubID}/appointments/{appointmentID}",
		"PUT /clubs/{clubID}/appointments/{appointmentID}",
		"DELETE /clubs/{clubID}/appointments/{appointmentID}",
	} {
		require.Truef(t, routes[want], "missing route %s", want)
	}

	// appointments belong to the club, not to a session
	for _, gone := range []string{
		"POST /clubs/{clubID}/sessions/{sessionID}/appointments",
		"GET /clubs/{clubID}/sessions/{sessionID}/appointments",
		"DELETE /clubs/{clubID}/sessions/{sessionID}/appointments",
	} {
		require.Falsef(t, routes[gone], "unexpected route %s", gone)
	}
}

func TestRouterRegistersUpdateRoutes(t *testing.T) {
	routes := routeTable(t)

	for _, want := range []string{
		"PUT /clubs/{clubID}/sessions/{sessionID}",
		"PUT /clubs/{clubID}/notices/{noticeID}",
		"PUT /clubs/{clubID}/towers/{towerID}",
		"PUT /clubs/{clubID}/issues/{issueID}",
	} {
		require.Truef(t, routes[want], "missing route %s", want)
	}
}
