package cache

import (
	"time"

	"github.com/google/uuid"
)

// Prefix is the key prefix shared by every cached view of resource. It is
// also the unit of invalidation passed to InvalidatePrefix.
func Prefix(resource string) string {
	return resource + ":"
}

// AvailabilityResource is the resource key of a guide's slot calendar.
func AvailabilityResource(guideID uuid.UUID) string {
	return "availability:" + guideID.String()
}

// AvailabilityPrefix matches every cached availability view of a guide.
func AvailabilityPrefix(guideID uuid.UUID) string {
	return Prefix(AvailabilityResource(guideID))
}

// AvailabilityParams is the parameter identity of a slot range query.
func AvailabilityParams(from, to time.Time, status string) string {
	if status == "" {
		status = "any"
	}
	return from.UTC().Format(time.RFC3339) + "|" + to.UTC().Format(time.RFC3339) + "|" + status
}
