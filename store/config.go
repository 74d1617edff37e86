package store

// Codec names accepted by FileConfig.
const (
	CodecJSON = "json"
	CodecCBOR = "cbor"
)

// FileConfig holds configuration for a File store.
type FileConfig struct {
	// Path is the log file location. Missing parent directories are created.
	// Default: "data/schedule2_db"
	Path string

	// Codec selects the on-disk encoding: CodecJSON (one JSON object per line)
	// or CodecCBOR (a CBOR sequence).
	// Default: CodecJSON
	Codec string
}

// DefaultFileConfig returns the defaults for a local schedule database.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Path:  "data/schedule2_db",
		Codec: CodecJSON,
	}
}

// validate fills empty values with defaults.
func (c *FileConfig) validate() {
	def := DefaultFileConfig()
	if c.Path == "" {
		c.Path = def.Path
	}
	if c.Codec == "" {
		c.Codec = def.Codec
	}
}

// DynamoConfig holds configuration for a Dynamo store.
type DynamoConfig struct {
	// Table is the DynamoDB table holding one item per record.
	// Default: "schedule_records"
	Table string

	// KeyAttr is the string partition key attribute holding the record key.
	// Default: "key"
	KeyAttr string

	// KindAttr holds the variant name.
	// Default: "kind"
	KindAttr string

	// FieldsAttr holds the record fields as a map attribute.
	// Default: "fields"
	FieldsAttr string

	// ConsistentRead requests strongly consistent reads for Get and Has.
	// Default: true
	ConsistentRead bool
}

// DefaultDynamoConfig returns sensible defaults for a records table.
func DefaultDynamoConfig() DynamoConfig {
	return DynamoConfig{
		Table:          "schedule_records",
		KeyAttr:        "key",
		KindAttr:       "kind",
		FieldsAttr:     "fields",
		ConsistentRead: true,
	}
}

// validate fills empty attribute names with defaults.
func (c *DynamoConfig) validate() {
	def := DefaultDynamoConfig()
	if c.Table == "" {
		c.Table = def.Table
	}
	if c.KeyAttr == "" {
		c.KeyAttr = def.KeyAttr
	}
	if c.KindAttr == "" {
		c.KindAttr = def.KindAttr
	}
	if c.FieldsAttr == "" {
		c.FieldsAttr = def.FieldsAttr
	}
}
