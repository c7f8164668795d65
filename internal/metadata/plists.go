package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"howett.net/plist"
)

// Descriptor files at the backup root. All three are whole-file plists; the
// library auto-detects XML vs binary format.
const (
	infoFile     = "Info.plist"
	statusFile   = "Status.plist"
	manifestFile = "Manifest.plist"
)

// Info holds the decoded Info.plist: device identity and the installed
// application inventory.
type Info struct {
	Data map[string]interface{}
}

// Status holds the decoded Status.plist.
type Status struct {
	Data map[string]interface{}
}

// Manifest holds the decoded Manifest.plist (top-level backup descriptor,
// not the Manifest.db index).
type Manifest struct {
	Data map[string]interface{}
}

func ReadInfo(basePath string) (*Info, error) {
	data, err := readPlist(filepath.Join(basePath, infoFile))
	if err != nil {
		return nil, err
	}
	return &Info{Data: data}, nil
}

func ReadStatus(basePath string) (*Status, error) {
	data, err := readPlist(filepath.Join(basePath, statusFile))
	if err != nil {
		return nil, err
	}
	return &Status{Data: data}, nil
}

func ReadManifest(basePath string) (*Manifest, error) {
	data, err := readPlist(filepath.Join(basePath, manifestFile))
	if err != nil {
		return nil, err
	}
	return &Manifest{Data: data}, nil
}

func readPlist(path string) (map[string]interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if _, err := plist.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// App describes one installed application from the Info.plist inventory.
type App struct {
	BundleID string
	Name     string
	Title    string
	Genre    string
	Version  string
}

// Apps extracts the installed applications. Each entry may embed an
// iTunesMetadata plist with display details; entries without one (or with a
// corrupt one) are listed by bundle ID alone.
func (i *Info) Apps() []App {
	applications, _ := i.Data["Applications"].(map[string]interface{})
	apps := make([]App, 0, len(applications))
	for bundleID, v := range applications {
		app := App{BundleID: bundleID}
		if entry, ok := v.(map[string]interface{}); ok {
			if raw, ok := entry["iTunesMetadata"].([]byte); ok && len(raw) > 0 {
				var meta map[string]interface{}
				if _, err := plist.Unmarshal(raw, &meta); err == nil {
					app.Name = stringValue(meta, "itemName")
					app.Title = stringValue(meta, "title")
					app.Genre = stringValue(meta, "genre")
					app.Version = stringValue(meta, "bundleShortVersionString")
				}
			}
		}
		apps = append(apps, app)
	}
	return apps
}

// Property is one name/value line of the backup summary.
type Property struct {
	Name  string
	Value string
}

const unknown = "Unknown"

// Summary assembles the human-readable backup overview from the descriptor
// files: device identity from Info.plist, snapshot state from Status.plist
// and the encryption flag from Manifest.plist.
func Summary(info *Info, status *Status, manifest *Manifest) []Property {
	backupDateUTC := unknown
	backupDateLocal := unknown
	if date, ok := info.Data["Last Backup Date"].(time.Time); ok {
		backupDateUTC = date.UTC().Format("2006-01-02 15:04:05")
		backupDateLocal = date.Local().Format("2006-01-02 15:04:05")
	}
	encrypted := "No"
	if v, ok := manifest.Data["IsEncrypted"].(bool); ok && v {
		encrypted = "Yes"
	}
	snapshotState := unknown
	if s := stringValue(status.Data, "SnapshotState"); s != "" {
		snapshotState = s
	}
	fullBackup := "No"
	if v, ok := status.Data["IsFullBackup"].(bool); ok && v {
		fullBackup = "Yes"
	}
	device := func(key string) string {
		if s := stringValue(info.Data, key); s != "" {
			return s
		}
		return unknown
	}
	return []Property{
		{"Device Name", device("Device Name")},
		{"Device Type", device("Product Type")},
		{"Model Name", device("Product Name")},
		{"OS Version", device("Product Version")},
		{"Serial Number", device("Serial Number")},
		{"IMEI", device("IMEI")},
		{"Device ID", device("Unique Identifier")},
		{"Backup Date (UTC)", backupDateUTC},
		{"Backup Date (local)", backupDateLocal},
		{"Snapshot State", snapshotState},
		{"Full Backup", fullBackup},
		{"Encrypted", encrypted},
	}
}

func stringValue(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
