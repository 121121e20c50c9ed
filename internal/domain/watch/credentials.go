package watch

// Credentials is an imweb API key pair. Immutable for the duration of a poll
// cycle.
type Credentials struct {
	APIKey    string
	APISecret string
}

// ResolveCredentials merges user-entered credentials with the bundled default
// pair. Precedence: explicit user key+secret, else the default pair when both
// fields are present, else nil (unconfigured - polling becomes a no-op).
func ResolveCredentials(userKey, userSecret, defaultKey, defaultSecret string) *Credentials {
	if userKey != "" && userSecret != "" {
		return &Credentials{APIKey: userKey, APISecret: userSecret}
	}
	if defaultKey != "" && defaultSecret != "" {
		return &Credentials{APIKey: defaultKey, APISecret: defaultSecret}
	}
	return nil
}
