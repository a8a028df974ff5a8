package publish

import "context"

// Config controls what happens to export files after a run.
type Config struct {
	// Dir is the export directory that is pruned.
	Dir string
	// KeepLast is the number of export pairs kept in Dir. Zero keeps all.
	KeepLast  int
	BucketURL string

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string
	S3UseSSL       bool
}

// Uploader uploads one export file.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
