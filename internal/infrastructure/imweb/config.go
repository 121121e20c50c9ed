package imweb

// Config holds configuration for the imweb v2 API client.
type Config struct {
	// APIBaseURL is the base URL for the imweb API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// PageSize is the fixed page size for order listing. The API signals
	// "more pages" only implicitly: a page is considered the last one when it
	// comes back smaller than this.
	PageSize int
}

// ProductionAPIURL is the production imweb API endpoint
const ProductionAPIURL = "https://api.imweb.me/v2"

// DefaultConfig returns an imweb client configuration with defaults
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:     ProductionAPIURL,
		TimeoutSeconds: 30,
		PageSize:       100,
	}
}

// normalize fills in defaults for zero-valued fields
func (c *Config) normalize() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = ProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
}
