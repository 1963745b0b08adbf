package config

const (
	defaultConfigPath         = "~/.config/prism/config.toml"
	defaultAssetRoot          = "~/.local/share/prism/assets"
	defaultCatalogFile        = "catalog.json"
	defaultLogDir             = "~/.local/share/prism/logs"
	defaultPlaceholderWidth   = 20
	defaultPlaceholderFormat  = "webp"
	defaultEncodeWorkers      = 4
	defaultBatchWorkers       = 2
	defaultCwebpBinary        = "cwebp"
	defaultAvifencBinary      = "avifenc"
	defaultLockTimeoutSeconds = 10
	defaultLoaderBaseURL      = "/assets"
	defaultLoaderImage        = "/static/default-product.jpg"
	defaultProbeTimeoutMS     = 1500
	defaultRecordsDriver      = "none"
	defaultRecordsSQLitePath  = "~/.local/share/prism/records.db"
	defaultRecordsTimeout     = 10
	defaultRecordsRetries     = 3
	defaultRecordsBackoffMS   = 500
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Format names accepted in encoding.formats.
const (
	FormatAVIF = "avif"
	FormatWebP = "webp"
	FormatJPEG = "jpg"
	FormatPNG  = "png"
)

// Record store drivers accepted in records.driver.
const (
	RecordsDriverNone   = "none"
	RecordsDriverSQLite = "sqlite"
	RecordsDriverHTTP   = "http"
)

func defaultFormats() []string {
	return []string{FormatAVIF, FormatWebP, FormatJPEG, FormatPNG}
}

func defaultWidths() []int {
	return []int{320, 640, 768, 1024, 1536}
}

// Default returns a Config populated with repository defaults. The catalog path
// is left blank and resolved under the asset root during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			AssetRoot: defaultAssetRoot,
			LogDir:    defaultLogDir,
		},
		Encoding: Encoding{
			Formats:           defaultFormats(),
			Widths:            defaultWidths(),
			PlaceholderWidth:  defaultPlaceholderWidth,
			PlaceholderFormat: defaultPlaceholderFormat,
			Workers:           defaultEncodeWorkers,
			BatchWorkers:      defaultBatchWorkers,
			CwebpBinary:       defaultCwebpBinary,
			AvifencBinary:     defaultAvifencBinary,
		},
		Catalog: Catalog{
			LockTimeoutSeconds: defaultLockTimeoutSeconds,
		},
		Loader: Loader{
			BaseURL:        defaultLoaderBaseURL,
			DefaultImage:   defaultLoaderImage,
			ProbeTimeoutMS: defaultProbeTimeoutMS,
		},
		Records: Records{
			Driver:         defaultRecordsDriver,
			SQLitePath:     defaultRecordsSQLitePath,
			TimeoutSeconds: defaultRecordsTimeout,
			Retries:        defaultRecordsRetries,
			BackoffMS:      defaultRecordsBackoffMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
