package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"prism/internal/config"
	"prism/internal/deps"
)

// EncoderRequirements lists the external binaries needed by the configured formats.
// Native formats (jpg, png) need none.
func EncoderRequirements(cfg *config.Config) []deps.Requirement {
	var reqs []deps.Requirement
	for _, format := range cfg.Encoding.Formats {
		switch format {
		case config.FormatAVIF:
			reqs = append(reqs, deps.Requirement{
				Name:        "avifenc",
				Command:     cfg.Encoding.AvifencBinary,
				VersionArgs: []string{"--version"},
			})
		case config.FormatWebP:
			reqs = append(reqs, deps.Requirement{
				Name:        "cwebp",
				Command:     cfg.Encoding.CwebpBinary,
				VersionArgs: []string{"-version"},
			})
		}
	}
	return reqs
}

// CheckEncoders reports each external encoder binary. A missing encoder only
// drops its format from new assets, so encoder checks are optional unless no
// configured format can be produced at all.
func CheckEncoders(ctx context.Context, cfg *config.Config) []Result {
	statuses := deps.Check(ctx, EncoderRequirements(cfg))
	native := cfg.HasFormat(config.FormatJPEG) || cfg.HasFormat(config.FormatPNG)

	anyAvailable := native
	for _, status := range statuses {
		if status.Available {
			anyAvailable = true
		}
	}

	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available, Optional: anyAvailable}
		switch {
		case status.Available && status.Version != "":
			result.Detail = fmt.Sprintf("%s (%s)", status.Path, status.Version)
		case status.Available:
			result.Detail = status.Path
		default:
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// CheckRecords verifies that the configured external record store is usable.
func CheckRecords(ctx context.Context, cfg *config.Config) Result {
	const name = "Record store"

	switch cfg.Records.Driver {
	case config.RecordsDriverSQLite:
		dir := filepath.Dir(cfg.Records.SQLitePath)
		check := CheckDirectoryAccess(name, dir)
		if check.Passed {
			check.Detail = fmt.Sprintf("sqlite %s", cfg.Records.SQLitePath)
		}
		return check
	case config.RecordsDriverHTTP:
		return CheckRecordsHTTP(ctx, cfg.Records.URL, cfg.Records.APIKey)
	default:
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
}

// CheckRecordsHTTP verifies HTTP record store connectivity and authentication.
func CheckRecordsHTTP(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Record store"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/categories", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	req.Header.Set("Accept", "application/json")
	if key := strings.TrimSpace(apiKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
