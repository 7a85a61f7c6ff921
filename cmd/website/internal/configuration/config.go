package configuration

import "github.com/adampresley/configinator"

type Config struct {
	DSN                string `flag:"dsn" env:"DSN" default:"file:./data/photoportfolio.db?_pragma=busy_timeout(5000)" description:"Data source name"`
	EditMode           bool   `flag:"edit" env:"EDIT_MODE" default:"false" description:"Request the owner editing flow (password setup or sign in) for this session"`
	Host               string `flag:"host" env:"HOST" default:"localhost:8080" description:"The address and port to bind the HTTP server to"`
	ImageQuality       int    `flag:"imagequality" env:"IMAGE_QUALITY" default:"80" description:"JPEG quality (1-100) for uploaded images"`
	LockFile           string `flag:"lockfile" env:"LOCK_FILE" default:"./data/photoportfolio.lock" description:"Lock file that keeps a second session from opening the same data"`
	LockoutSeconds     int    `flag:"lockoutseconds" env:"LOCKOUT_SECONDS" default:"30" description:"How long sign in is blocked after too many wrong passwords"`
	LogLevel           string `flag:"loglevel" env:"LOG_LEVEL" default:"debug" description:"The log level to use. Valid values are 'debug', 'info', 'warn', and 'error'"`
	MaxFailedLogins    int    `flag:"maxfailedlogins" env:"MAX_FAILED_LOGINS" default:"5" description:"Wrong passwords allowed before sign in is blocked. Negative disables blocking"`
	MaxImageWidth      int    `flag:"maximagewidth" env:"MAX_IMAGE_WIDTH" default:"1000" description:"Maximum width in pixels of stored images"`
	MaxUploadMB        int    `flag:"maxuploadmb" env:"MAX_UPLOAD_MB" default:"20" description:"Largest image file accepted for upload, in megabytes"`
	StorageQuotaBytes  int    `flag:"storagequota" env:"STORAGE_QUOTA_BYTES" default:"5242880" description:"Total bytes all stored records may take up"`
	UpscaleSmallImages bool   `flag:"upscale" env:"UPSCALE_SMALL_IMAGES" default:"false" description:"Scale images narrower than the maximum width up to it"`
}

func LoadConfig() Config {
	config := Config{}
	configinator.Behold(&config)
	return config
}
