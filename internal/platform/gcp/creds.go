package gcp

import (
	"strings"

	"google.golang.org/api/option"
)

// ClientOptions turns a credentials setting into client options. The value is
// either inline service-account JSON or a path to a key file; empty uses ADC.
func ClientOptions(credentials string) []option.ClientOption {
	creds := strings.TrimSpace(credentials)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
