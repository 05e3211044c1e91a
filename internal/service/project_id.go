package service

import (
	"context"
	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nordhen/credgate/internal/pkg/codeassist"
)

// ProjectIDCache stores the discovered project identifier per credential
// index. Independent lifecycle: no TTL, invalidated only by explicit clear.
type ProjectIDCache interface {
	// GetProjectID returns "" when no record exists.
	GetProjectID(ctx context.Context, index int) (string, error)
	SetProjectID(ctx context.Context, index int, projectID string) error
	DeleteProjectID(ctx context.Context, index int) error
}

// extractProjectID pulls the project identifier out of a loadCodeAssist or
// onboardUser response. The field is either a plain string or an object with
// an id/name.
func extractProjectID(body []byte) string {
	raw := string(body)
	for _, path := range []string{
		"cloudaicompanionProject",
		"cloudaicompanionProject.id",
		"response.cloudaicompanionProject",
		"response.cloudaicompanionProject.id",
	} {
		v := gjson.Get(raw, path)
		if v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// injectProject sets the project field on a request body when absent, using
// the cached project id for the current credential. Methods other than the
// content-generation family pass through untouched.
func injectProject(method string, body []byte, projectID string) []byte {
	if projectID == "" {
		return body
	}
	switch method {
	case codeassist.MethodGenerateContent, codeassist.MethodStreamGenerateContent, codeassist.MethodCountTokens:
	default:
		return body
	}
	if gjson.GetBytes(body, "project").Exists() {
		return body
	}
	patched, err := sjson.SetBytes(body, "project", projectID)
	if err != nil {
		slog.Warn("project_inject_failed", "method", method, "error", err)
		return body
	}
	return patched
}
