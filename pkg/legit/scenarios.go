package legit

import "net/http"

// Scenario is one kind of ordinary user action.
type Scenario struct {
	Name   string            `json:"name" yaml:"name"`
	Method string            `json:"method" yaml:"method"`
	Path   string            `json:"path" yaml:"path"`
	Body   map[string]string `json:"body,omitempty" yaml:"body,omitempty"`
}

// DefaultScenarios returns the built-in browsing mix.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "Homepage", Method: http.MethodGet, Path: "/"},
		{Name: "Login Page", Method: http.MethodGet, Path: "/login"},
		{Name: "Search Action", Method: http.MethodPost, Path: "/api/v1/search", Body: map[string]string{"q": "products"}},
		{Name: "Health Check", Method: http.MethodGet, Path: "/api/health"},
		{Name: "Contact Form", Method: http.MethodPost, Path: "/contact", Body: map[string]string{"message": "Hello support"}},
	}
}

// UsersPerScenario is how many simulated users run each scenario.
func UsersPerScenario(concurrency int) int {
	if concurrency < 0 {
		return 0
	}
	return concurrency / 2
}
