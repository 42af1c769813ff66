package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixSegmentEntry = "segment-entry:"
)

const (
	DefaultContactEventsTopic  = "contact_events"
	DefaultSegmentEntriesTopic = "segment_entries"
	DefaultConfigEventsTopic   = "segment_config_events"
)

const (
	DefaultMongoDBName             = "wacrm"
	ContactsCollection             = "contacts"
	ContactGroupsCollection        = "contact_groups"
	DefaultGroupLookupTimeout      = 2 * time.Second
	DefaultSegmentReloadInterval   = 60 * time.Second
	DefaultSegmentEntryTTL         = 24 * time.Hour
	DefaultMembershipBreakerWindow = 60 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultPageSize     = 50
	MaxPageSize         = 500
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	HeaderOwnerID   = "X-Owner-ID"
	HeaderCompanyID = "X-Company-ID"
	HeaderRequestID = "X-Request-ID"
	HeaderChangedBy = "X-Changed-By"
)

const (
	CompileModeStructured = "structured"
	CompileModeLegacy     = "legacy"
)
