package restore

// Inputs declared in action.yml.
const (
	InputKeys                 = "keys"
	InputPaths                = "paths"
	InputRestoreKeys          = "restore-keys"
	InputEnableCrossOsArchive = "enableCrossOsArchive"
	InputFailOnCacheMiss      = "fail-on-cache-miss"
	InputLookupOnly           = "lookup-only"
)

// Outputs set by the restore step.
const (
	OutputCacheHits        = "cache-hits"
	OutputCachePrimaryKeys = "cache-primary-keys"
	OutputCacheMatchedKeys = "cache-matched-keys"
)

// State handed to the save step.
const (
	StateCachePrimaryKeys = "CACHE_KEYS"
	StateCacheMatchedKeys = "CACHE_RESULTS"
)

const (
	envEventName = "GITHUB_EVENT_NAME"
	envRef       = "GITHUB_REF"
	envServerURL = "GITHUB_SERVER_URL"
)
