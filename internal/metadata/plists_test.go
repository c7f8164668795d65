package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func writePlist(t *testing.T, dir, name string, data interface{}) {
	t.Helper()
	raw, err := plist.Marshal(data, plist.XMLFormat)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o644))
}

func writeDescriptors(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	appMeta, err := plist.Marshal(map[string]interface{}{
		"itemName":                 "Example App",
		"title":                    "Example",
		"genre":                    "Utilities",
		"bundleShortVersionString": "2.4.1",
	}, plist.BinaryFormat)
	require.NoError(t, err)

	writePlist(t, dir, "Info.plist", map[string]interface{}{
		"Device Name":       "Peter's iPhone",
		"Product Type":      "iPhone14,2",
		"Product Name":      "iPhone 13 Pro",
		"Product Version":   "17.5.1",
		"Serial Number":     "F2LXK0ABCD12",
		"Unique Identifier": "00008110-000A1B2C3D4E5F6G",
		"Last Backup Date":  time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		"Applications": map[string]interface{}{
			"com.example.app": map[string]interface{}{
				"iTunesMetadata": appMeta,
			},
			"com.bare.app": map[string]interface{}{},
		},
	})
	writePlist(t, dir, "Status.plist", map[string]interface{}{
		"SnapshotState": "finished",
		"IsFullBackup":  true,
	})
	writePlist(t, dir, "Manifest.plist", map[string]interface{}{
		"IsEncrypted": false,
	})
	return dir
}

func summaryValue(props []Property, name string) string {
	for _, p := range props {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func TestSummary(t *testing.T) {
	dir := writeDescriptors(t)

	info, err := ReadInfo(dir)
	require.NoError(t, err)
	status, err := ReadStatus(dir)
	require.NoError(t, err)
	manifest, err := ReadManifest(dir)
	require.NoError(t, err)

	props := Summary(info, status, manifest)

	assert.Equal(t, "Peter's iPhone", summaryValue(props, "Device Name"))
	assert.Equal(t, "iPhone14,2", summaryValue(props, "Device Type"))
	assert.Equal(t, "iPhone 13 Pro", summaryValue(props, "Model Name"))
	assert.Equal(t, "17.5.1", summaryValue(props, "OS Version"))
	assert.Equal(t, "Unknown", summaryValue(props, "IMEI"))
	assert.Equal(t, "2024-03-01 10:30:00", summaryValue(props, "Backup Date (UTC)"))
	assert.NotEqual(t, "Unknown", summaryValue(props, "Backup Date (local)"))
	assert.Equal(t, "finished", summaryValue(props, "Snapshot State"))
	assert.Equal(t, "Yes", summaryValue(props, "Full Backup"))
	assert.Equal(t, "No", summaryValue(props, "Encrypted"))
}

func TestSummaryEmptyDescriptors(t *testing.T) {
	dir := t.TempDir()
	writePlist(t, dir, "Info.plist", map[string]interface{}{})
	writePlist(t, dir, "Status.plist", map[string]interface{}{})
	writePlist(t, dir, "Manifest.plist", map[string]interface{}{"IsEncrypted": true})

	info, err := ReadInfo(dir)
	require.NoError(t, err)
	status, err := ReadStatus(dir)
	require.NoError(t, err)
	manifest, err := ReadManifest(dir)
	require.NoError(t, err)

	props := Summary(info, status, manifest)
	assert.Equal(t, "Unknown", summaryValue(props, "Device Name"))
	assert.Equal(t, "Unknown", summaryValue(props, "Backup Date (UTC)"))
	assert.Equal(t, "No", summaryValue(props, "Full Backup"))
	assert.Equal(t, "Yes", summaryValue(props, "Encrypted"))
}

func TestApps(t *testing.T) {
	dir := writeDescriptors(t)
	info, err := ReadInfo(dir)
	require.NoError(t, err)

	apps := info.Apps()
	require.Len(t, apps, 2)

	byBundle := make(map[string]App)
	for _, app := range apps {
		byBundle[app.BundleID] = app
	}

	rich := byBundle["com.example.app"]
	assert.Equal(t, "Example App", rich.Name)
	assert.Equal(t, "Example", rich.Title)
	assert.Equal(t, "Utilities", rich.Genre)
	assert.Equal(t, "2.4.1", rich.Version)

	// Entries without iTunesMetadata are still listed, by bundle ID alone.
	bare := byBundle["com.bare.app"]
	assert.Equal(t, "com.bare.app", bare.BundleID)
	assert.Empty(t, bare.Name)
}

func TestReadInfoMissingFile(t *testing.T) {
	_, err := ReadInfo(t.TempDir())
	assert.Error(t, err)
}

func TestReadManifestMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Manifest.plist"), []byte("junk"), 0o644))

	_, err := ReadManifest(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Manifest.plist")
}
