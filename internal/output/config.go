package output

// Backend names accepted by output.backend.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendMinio = "minio"
)

// Config selects and configures the artifact destination.
type Config struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"` //nolint:gosec // G101: config field name, not a credential
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// DefaultConfig writes to the local directory used by the batch job.
func DefaultConfig() Config {
	return Config{
		Backend: BackendLocal,
		Dir:     "/mnt/output",
		Region:  "us-east-1",
		UseSSL:  true,
	}
}
