package datanorm

// S3Config locates raw transaction exports in S3.
type S3Config struct {
	Bucket     string
	Key        string // a single object, or a prefix ending in "/" to read every CSV under it
	Region     string
	AWSProfile string
}

// ReadResult tracks the outcome of reading one file.
type ReadResult struct {
	Source      string
	Layout      Layout
	Rows        int
	SkippedRows int // rows the CSV reader could not parse
}
