// Package codeassist holds the Code Assist API and Google OAuth constants.
package codeassist

import "strings"

const (
	// Google OAuth token endpoint used for refresh_token grants.
	TokenURL = "https://oauth2.googleapis.com/token"

	// Code Assist API endpoint and wire version.
	Endpoint   = "https://cloudcode-pa.googleapis.com"
	APIVersion = "v1internal"
)

// Upstream methods. LoadCodeAssist is the discovery method and the only one
// where a 500 is treated as transient by the retry engine.
const (
	MethodLoadCodeAssist        = "loadCodeAssist"
	MethodOnboardUser           = "onboardUser"
	MethodCountTokens           = "countTokens"
	MethodGenerateContent       = "generateContent"
	MethodStreamGenerateContent = "streamGenerateContent"
)

var knownMethods = map[string]bool{
	MethodLoadCodeAssist:        true,
	MethodOnboardUser:           true,
	MethodCountTokens:           true,
	MethodGenerateContent:       true,
	MethodStreamGenerateContent: true,
}

// IsKnownMethod reports whether method is one of the supported upstream methods.
func IsKnownMethod(method string) bool {
	return knownMethods[strings.TrimSpace(method)]
}

// MethodURL builds the full upstream URL for a method, e.g.
// https://cloudcode-pa.googleapis.com/v1internal:generateContent.
func MethodURL(endpoint, version, method string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = Endpoint
	}
	version = strings.TrimSpace(version)
	if version == "" {
		version = APIVersion
	}
	return endpoint + "/" + version + ":" + method
}
