package shared

// Listing defaults shared by the vendor and site endpoints.
const (
	DefaultPage  = 1
	DefaultLimit = 10

	SortAsc  = "asc"
	SortDesc = "desc"
)
