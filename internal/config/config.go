package config

// Config holds optional defaults for the CLI, loaded from an ibb.yaml file.
// Every value can be overridden by a command-line flag.
type Config struct {
	// BatchSize tunes the manifest cursor's fetch size.
	BatchSize int `yaml:"batchSize"`
	// CaseSensitive makes filter matching case-sensitive by default.
	CaseSensitive bool `yaml:"caseSensitive"`
	// Minio configures the remote export destination.
	Minio Minio `yaml:"minio"`
}

// Minio is the remote export destination. SecretKey supports $(ENV_VAR)
// placeholders so credentials can stay out of the file.
type Minio struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Folder    string `yaml:"folder"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Insecure  bool   `yaml:"insecure"`
}
