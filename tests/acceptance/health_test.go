package acceptance

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

func (s *Suite) TestHealthReportsPass() {
	resp, err := http.Get(s.BaseURL + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var body map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("pass", body["status"])
}

func (s *Suite) TestMetricsExposeAuthEvents() {
	s.postJSON("/api/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever-password",
	}, "", nil)

	resp, err := http.Get(s.BaseURL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.True(strings.Contains(string(raw), "auth_events"), "expected auth event counter in metrics output")
}
