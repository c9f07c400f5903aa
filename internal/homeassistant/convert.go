package homeassistant

import (
	"sort"
	"strings"

	"github.com/njoerd114/placereminder/internal/notify"
)

const (
	domainNotify      = "notify"
	mobileAppPrefix   = "mobile_app_"
	notificationTag   = "placereminder-"
	notificationGroup = "placereminder"
)

// ServiceDomain is one entry of the /api/services catalogue.
type ServiceDomain struct {
	Domain   string                    `json:"domain"`
	Services map[string]map[string]any `json:"services"`
}

// buildNotifyData builds the notify.<service> payload. data.url is read by
// the iOS companion app and data.clickAction by Android; both open the
// reminder on tap. The tag replaces an earlier notification for the same
// reminder instead of stacking.
func buildNotifyData(n notify.Notification) map[string]any {
	message := n.Body()
	if message == "" {
		message = n.Title
	}

	data := map[string]any{
		"tag":   notificationTag + n.ReminderID,
		"group": notificationGroup,
	}
	if n.Link != "" {
		data["url"] = n.Link
		data["clickAction"] = n.Link
	}

	return map[string]any{
		"title":   n.Title,
		"message": message,
		"data":    data,
	}
}

// serviceName strips a leading "notify." so both forms are accepted in
// config.
func serviceName(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), domainNotify+".")
}

// mobileAppServices picks the notify services registered by companion apps.
func mobileAppServices(domains []ServiceDomain) []string {
	var out []string
	for _, d := range domains {
		if d.Domain != domainNotify {
			continue
		}
		for name := range d.Services {
			if strings.HasPrefix(name, mobileAppPrefix) {
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}
