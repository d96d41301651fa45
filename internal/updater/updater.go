// Package updater checks GitHub Releases for a newer docsmith and can
// replace the running binary with it. The replacement is written next to
// the executable and renamed over it; the server must be restarted to
// pick it up.
package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the GitHub API URL of the latest docsmith release.
	DefaultEndpoint = "https://api.github.com/repos/HendryAvila/docsmith/releases/latest"

	binaryName = "docsmith"

	// maxArchiveBytes bounds release downloads.
	maxArchiveBytes = 200 << 20
)

// ErrUpToDate is returned by Update when no newer release exists.
var ErrUpToDate = errors.New("already at the latest version")

// Release holds the fields of a GitHub release we use.
type Release struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Result is the outcome of a version check.
type Result struct {
	Current         string
	Latest          string
	UpdateAvailable bool
	ReleaseURL      string
}

// Checker talks to the releases endpoint.
type Checker struct {
	client   *http.Client
	endpoint string
	goos     string
	goarch   string
}

// NewChecker creates a Checker. Empty endpoint uses DefaultEndpoint and a
// nil client gets a 10s timeout.
func NewChecker(endpoint string, client *http.Client) *Checker {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Checker{client: client, endpoint: endpoint, goos: runtime.GOOS, goarch: runtime.GOARCH}
}

// Check compares current against the latest release.
func (c *Checker) Check(ctx context.Context, current string) (Result, error) {
	res := Result{Current: trimV(current)}
	rel, err := c.latest(ctx, current)
	if err != nil {
		return res, err
	}
	res.Latest = trimV(rel.TagName)
	res.ReleaseURL = rel.HTMLURL
	res.UpdateAvailable = newer(res.Current, res.Latest)
	return res, nil
}

// Update downloads the release archive for this platform and replaces the
// binary at execPath. Returns ErrUpToDate when there is nothing newer.
func (c *Checker) Update(ctx context.Context, current, execPath string) (Result, error) {
	rel, err := c.latest(ctx, current)
	if err != nil {
		return Result{Current: trimV(current)}, err
	}
	res := Result{
		Current:    trimV(current),
		Latest:     trimV(rel.TagName),
		ReleaseURL: rel.HTMLURL,
	}
	if !newer(res.Current, res.Latest) {
		return res, ErrUpToDate
	}
	res.UpdateAvailable = true

	name := c.assetName(res.Latest)
	var url string
	for _, a := range rel.Assets {
		if a.Name == name {
			url = a.BrowserDownloadURL
			break
		}
	}
	if url == "" {
		return res, fmt.Errorf("release %s has no asset %s", rel.TagName, name)
	}

	archive, err := c.get(ctx, url, current)
	if err != nil {
		return res, fmt.Errorf("downloading %s: %w", name, err)
	}
	bin, err := extract(archive, strings.HasSuffix(name, ".zip"))
	if err != nil {
		return res, fmt.Errorf("extracting %s: %w", name, err)
	}
	if err := replace(execPath, bin, c.goos == "windows"); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Checker) latest(ctx context.Context, current string) (Release, error) {
	body, err := c.get(ctx, c.endpoint, current)
	if err != nil {
		return Release{}, fmt.Errorf("fetching latest release: %w", err)
	}
	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return Release{}, fmt.Errorf("parsing release: %w", err)
	}
	return rel, nil
}

func (c *Checker) get(ctx context.Context, url, current string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", binaryName+"/"+current)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes))
}

// assetName matches the GoReleaser name template.
func (c *Checker) assetName(version string) string {
	ext := "tar.gz"
	if c.goos == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", binaryName, version, c.goos, c.goarch, ext)
}

func extract(archive []byte, isZip bool) ([]byte, error) {
	if isZip {
		zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
		if err != nil {
			return nil, err
		}
		for _, f := range zr.File {
			if isBinary(f.Name) {
				rc, err := f.Open()
				if err != nil {
					return nil, err
				}
				defer rc.Close()
				return io.ReadAll(rc)
			}
		}
		return nil, fmt.Errorf("%s not found in archive", binaryName)
	}

	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s not found in archive", binaryName)
		}
		if err != nil {
			return nil, err
		}
		if isBinary(hdr.Name) {
			return io.ReadAll(tr)
		}
	}
}

func isBinary(name string) bool {
	base := filepath.Base(name)
	return base == binaryName || base == binaryName+".exe"
}

// replace writes bin next to execPath and renames it into place. Windows
// cannot overwrite a running executable, so the old one is moved aside.
func replace(execPath string, bin []byte, windows bool) error {
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	tmp := execPath + ".new"
	if err := os.WriteFile(tmp, bin, 0o755); err != nil {
		return fmt.Errorf("writing new binary: %w", err)
	}
	if windows {
		old := execPath + ".old"
		_ = os.Remove(old)
		if err := os.Rename(execPath, old); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("moving current binary aside: %w", err)
		}
	}
	if err := os.Rename(tmp, execPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

func trimV(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// newer reports whether latest is a higher major.minor.patch than current.
// Development builds never report an update.
func newer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	cur, lat := semver(current), semver(latest)
	for i := range cur {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

// semver parses up to three numeric components, ignoring any suffix such
// as "-rc1" on each.
func semver(v string) [3]int {
	var out [3]int
	for i, part := range strings.SplitN(v, ".", 3) {
		end := strings.IndexFunc(part, func(r rune) bool { return r < '0' || r > '9' })
		if end >= 0 {
			part = part[:end]
		}
		out[i], _ = strconv.Atoi(part)
	}
	return out
}
