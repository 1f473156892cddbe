package model

// Asset describes a stored object in the blob bucket.
type Asset struct {
	Bucket string `json:"bucket"`
	S3Key  string `json:"s3_key"`
	ETag   string `json:"etag"`
	SHA256 string `json:"sha256"`
	MIME   string `json:"mime"`
	SizeB  int64  `json:"size_b"`
}
