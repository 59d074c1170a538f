package domain

// ExportRow is a single row in a guide's calendar export.
// It is a flat view of one slot with its times rendered in the guide's timezone.
type ExportRow struct {
	SlotID        string
	Date          string // "2006-01-02" in the guide's timezone
	StartTime     string // RFC 3339 with the guide's offset
	EndTime       string
	DurationHours int
	Status        string
}
