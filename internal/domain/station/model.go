package station

import "time"

// Station is a named cashier terminal. Only relevant when the tenant runs
// in multi_station mode; harmless to keep around otherwise.
type Station struct {
	ID          int64
	TenantID    int64
	Code        string
	Name        string
	Description string
	Active      bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
