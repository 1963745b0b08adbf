package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"prism/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Formats default to the native jpg and png codecs so tests never need
// external encoders unless they ask for stubs.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.AssetRoot = filepath.Join(base, "assets")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "assets", "catalog.json")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Encoding.Formats = []string{config.FormatJPEG, config.FormatPNG}
	cfgVal.Encoding.Widths = []int{640, 768, 1024}
	cfgVal.Encoding.PlaceholderFormat = config.FormatJPEG
	cfgVal.Catalog.LockTimeoutSeconds = 2
	cfgVal.Loader.ProbeTimeoutMS = 200
	cfgVal.Records.Driver = config.RecordsDriverNone
	cfgVal.Records.SQLitePath = filepath.Join(base, "records.db")
	cfgVal.Records.BackoffMS = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithFormats overrides the configured output formats.
func WithFormats(formats ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.Formats = append([]string(nil), formats...)
	}
}

// WithWidths overrides the configured target widths.
func WithWidths(widths ...int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.Widths = append([]int(nil), widths...)
	}
}

// WithPlaceholderFormat overrides the placeholder format.
func WithPlaceholderFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.PlaceholderFormat = format
	}
}

// WithRecordsDriver selects the record store driver.
func WithRecordsDriver(driver, url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Records.Driver = driver
		b.cfg.Records.URL = url
	}
}

// stubEncoder copies the PNG input to the last argument, which is where both
// cwebp (-o out) and avifenc (positional out) put their output.
const stubEncoder = `#!/bin/sh
in=""
out=""
for a in "$@"; do
  case "$a" in
    *.png) in="$a" ;;
  esac
  out="$a"
done
cp "$in" "$out"
`

const failingEncoder = "#!/bin/sh\necho \"encoder failed\" >&2\nexit 1\n"

// WithStubbedBinaries writes stub encoders for the provided names and
// prepends them to PATH. If names is empty, cwebp and avifenc are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"cwebp", "avifenc"}
		}
		writeStubs(b, stubEncoder, names)
	}
}

// WithFailingBinaries writes encoders that always exit non-zero.
func WithFailingBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		writeStubs(b, failingEncoder, names)
	}
}

// WithEmptyPath hides every external binary from PATH lookups.
func WithEmptyPath() ConfigOption {
	return func(b *configBuilder) {
		empty := filepath.Join(b.baseDir, "empty-bin")
		if err := os.MkdirAll(empty, 0o755); err != nil {
			b.t.Fatalf("mkdir empty bin dir: %v", err)
		}
		setPath(b, empty)
	}
}

func writeStubs(b *configBuilder, script string, names []string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	for _, name := range names {
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub %s: %v", name, err)
		}
	}
	setPath(b, binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func setPath(b *configBuilder, value string) {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", value); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.AssetRoot)
}
