package sharing

// Wire shapes of the sharing protocol. Field names and nesting are what
// Delta Sharing clients parse; do not rename.

// ShareItem is one share in a list or get response.
type ShareItem struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// SchemaItem is one schema in a list response.
type SchemaItem struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Share string `json:"share"`
}

// TableItem is one table in a list response.
type TableItem struct {
	Name    string `json:"name"`
	Schema  string `json:"schema"`
	Share   string `json:"share"`
	ShareID string `json:"shareId"`
	ID      string `json:"id"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// ShareResponse wraps a single share.
type ShareResponse struct {
	Share ShareItem `json:"share"`
}

// VersionResponse is the body of a version request.
type VersionResponse struct {
	Version int64 `json:"version"`
}

// ProtocolLine is the first line of every NDJSON table response.
type ProtocolLine struct {
	Protocol Protocol `json:"protocol"`
}

// Protocol carries the minimum client reader version.
type Protocol struct {
	MinReaderVersion int `json:"minReaderVersion"`
}

// MetadataLine is the second line of every NDJSON table response.
type MetadataLine struct {
	MetaData Metadata `json:"metaData"`
}

// Metadata describes a table's identity, format, and schema.
type Metadata struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Format           FormatSpec        `json:"format"`
	SchemaString     string            `json:"schemaString"`
	PartitionColumns []string          `json:"partitionColumns"`
	Configuration    map[string]string `json:"configuration"`
}

// FormatSpec names the file provider.
type FormatSpec struct {
	Provider string `json:"provider"`
}

// FileLine is one file descriptor line of a query response.
type FileLine struct {
	File FileAction `json:"file"`
}

// FileAction points the client at one data file.
type FileAction struct {
	URL             string            `json:"url"`
	ID              string            `json:"id"`
	PartitionValues map[string]string `json:"partitionValues"`
	Size            int64             `json:"size"`
	Stats           string            `json:"stats"`
}

// StructType is the JSON document serialized into schemaString.
type StructType struct {
	Type   string        `json:"type"`
	Fields []StructField `json:"fields"`
}

// StructField is one column in a StructType.
type StructField struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Nullable bool           `json:"nullable"`
	Metadata map[string]any `json:"metadata"`
}

// FileStats is the JSON document serialized into a file's stats.
type FileStats struct {
	NumRecords int64          `json:"numRecords"`
	MinValues  map[string]any `json:"minValues"`
	MaxValues  map[string]any `json:"maxValues"`
	NullCount  map[string]any `json:"nullCount"`
}

// QueryRequest is the optional body of a query request. Every field is
// accepted and none changes the response.
type QueryRequest struct {
	PredicateHints []string `json:"predicateHints,omitempty"`
	LimitHint      *int64   `json:"limitHint,omitempty"`
	Version        *int64   `json:"version,omitempty"`
}
