package debrid

import "fmt"

// Factory constructs a Provider from an API key and base URL override.
type Factory func(apiKey, baseURL string) Provider

var factories = map[string]Factory{}

// RegisterProvider adds a provider constructor to the registry, grounded on
// the teacher's init()-based RegisterProvider/NewAllDebridClient pattern in
// services/debrid/alldebrid_client.go.
func RegisterProvider(providerType string, factory Factory) {
	factories[providerType] = factory
}

func init() {
	RegisterProvider("realdebrid", func(apiKey, baseURL string) Provider {
		return NewRealDebridClient(apiKey, baseURL)
	})
	RegisterProvider("debridlink", func(apiKey, baseURL string) Provider {
		return NewDebridLinkClient(apiKey, baseURL)
	})
	RegisterProvider("alldebrid", func(apiKey, baseURL string) Provider {
		return NewAllDebridClient(apiKey, baseURL)
	})
}

// Build constructs a circuit-breaker-wrapped Provider for the given type.
func Build(providerType, apiKey, baseURL string) (Provider, error) {
	factory, ok := factories[providerType]
	if !ok {
		return nil, fmt.Errorf("debrid: unknown provider type %q", providerType)
	}
	return NewCircuitBreaker(factory(apiKey, baseURL)), nil
}
