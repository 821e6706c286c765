package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                     "/",
		"/metrics":                             "/metrics",
		"/v1/requests":                         "/v1/requests",
		"/v1/requests/01ABC":                   "/v1/requests/:id",
		"/v1/requests/01ABC/approve":           "/v1/requests/:id/approve",
		"/v1/requests/01ABC/decline":           "/v1/requests/:id/decline",
		"/v1/requests/01ABC/issue":             "/v1/requests/:id/issue",
		"/v1/requests/01ABC/close":             "/v1/requests/:id/close",
		"/v1/requests/01ABC/extra":             "/v1/requests/01ABC/extra",
		"/v1/persons/01DEF/approve":            "/v1/persons/:id/approve",
		"/v1/persons/01DEF/reject":             "/v1/persons/:id/reject",
		"/v1/notifications":                    "/v1/notifications",
		"/v1/notifications/01GHJ/read":         "/v1/notifications/:id/read",
		"/v1/requests?status=PENDING_AS":       "/v1/requests",
		"/v1/admin/stats":                      "/v1/admin/stats",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
