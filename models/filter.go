package models

// SortKey names a Node field the list view can be ordered by.
type SortKey string

const (
	SortNone             SortKey = ""
	SortID               SortKey = "id"
	SortAddress          SortKey = "address"
	SortIP               SortKey = "ip"
	SortVersion          SortKey = "version"
	SortStatus           SortKey = "status"
	SortHealth           SortKey = "health"
	SortUptime           SortKey = "uptime"
	SortStorageCommitted SortKey = "storage_committed"
	SortStorageUsed      SortKey = "storage_used"
	SortStorageUsage     SortKey = "storage_usage"
	SortLastSeen         SortKey = "last_seen"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterCriteria selects and orders nodes for list views. Zero-valued fields
// do not filter.
type FilterCriteria struct {
	Status  NodeStatus
	Version string
	Search  string
	SortBy  SortKey
	Order   SortOrder
}
