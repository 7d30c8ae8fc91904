package card

import (
	"fmt"
	"strings"

	"github.com/chimehook/chimehook/internal/resolver"
)

// DefaultLogBaseURL is used when no base URL is configured. It points
// at a local placeholder and is exempt from HTTPS normalization.
const DefaultLogBaseURL = "http://localhost:8080"

// TaskLogURL builds the deep link to a task's logs:
// <base>/dags/<entityID>/runs/<runID>/tasks/<taskID>. Non-local base
// URLs are normalized to HTTPS.
func TaskLogURL(baseURL, entityID, runID, taskID string) string {
	if baseURL == "" {
		baseURL = DefaultLogBaseURL
	}
	if !strings.Contains(baseURL, "local") {
		baseURL = resolver.EnsureHTTPS(baseURL)
	}
	return fmt.Sprintf("%s/dags/%s/runs/%s/tasks/%s", baseURL, entityID, runID, taskID)
}
