package fingerprint

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ieeeRegistries are the first-column values of the IEEE oui.csv layout
var ieeeRegistries = map[string]bool{"MA-L": true, "MA-M": true, "MA-S": true, "IAB": true}

// MacVendorDB maps MAC address prefixes to vendor names
type MacVendorDB struct {
	vendors     map[string]string // MAC prefix -> vendor name
	lastUpdated time.Time
	mutex       sync.RWMutex
	logger      *logrus.Logger
}

// NewMacVendorDB creates an empty database
func NewMacVendorDB(logger *logrus.Logger) *MacVendorDB {
	if logger == nil {
		logger = logrus.New()
	}
	return &MacVendorDB{
		vendors: make(map[string]string),
		logger:  logger,
	}
}

// LoadMacVendorDB reads the vendor CSV at path
func LoadMacVendorDB(path string, logger *logrus.Logger) (*MacVendorDB, error) {
	db := NewMacVendorDB(logger)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MAC vendor database: %w", err)
	}
	defer file.Close()

	if err := db.Load(file); err != nil {
		return nil, fmt.Errorf("failed to load MAC vendor database %s: %w", path, err)
	}

	if info, err := file.Stat(); err == nil {
		db.mutex.Lock()
		db.lastUpdated = info.ModTime()
		db.mutex.Unlock()
	}

	return db, nil
}

// Load replaces the database with the entries read from r. Two layouts are
// accepted: "PREFIX,Vendor" lines and the IEEE oui.csv export
// (Registry,Assignment,Organization Name,...). Lines without a hex prefix,
// such as headers, are skipped.
func (db *MacVendorDB) Load(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	vendors := make(map[string]string)
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		prefix, vendor := splitRecord(record)
		if prefix == "" || vendor == "" {
			skipped++
			continue
		}
		vendors[prefix] = vendor
	}

	db.mutex.Lock()
	db.vendors = vendors
	db.lastUpdated = time.Now()
	db.mutex.Unlock()

	db.logger.WithFields(logrus.Fields{
		"entries": len(vendors),
		"skipped": skipped,
	}).Debug("Loaded MAC vendor entries")
	return nil
}

func splitRecord(record []string) (prefix, vendor string) {
	switch {
	case len(record) >= 3 && ieeeRegistries[strings.TrimSpace(record[0])]:
		prefix, vendor = record[1], record[2]
	case len(record) >= 2:
		prefix, vendor = record[0], record[1]
	default:
		return "", ""
	}

	prefix = normalize(prefix)
	if len(prefix) < 6 {
		return "", ""
	}
	return prefix, strings.TrimSpace(vendor)
}

// normalize strips separators and upper-cases a MAC or prefix. It returns ""
// when anything other than hex digits remains.
func normalize(mac string) string {
	mac = strings.TrimSpace(mac)
	mac = strings.NewReplacer(":", "", "-", "", ".", "").Replace(mac)
	mac = strings.ToUpper(mac)

	for _, c := range mac {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return ""
		}
	}
	return mac
}

// LookupVendor looks up a vendor by MAC address, longest prefix first
func (db *MacVendorDB) LookupVendor(macAddress string) string {
	macAddress = normalize(macAddress)
	if len(macAddress) < 6 {
		return ""
	}

	db.mutex.RLock()
	defer db.mutex.RUnlock()

	for i := len(macAddress); i >= 6; i-- {
		if vendor, exists := db.vendors[macAddress[:i]]; exists {
			return vendor
		}
	}

	return ""
}

// GetLastUpdated returns when the database was loaded or last modified on disk
func (db *MacVendorDB) GetLastUpdated() time.Time {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return db.lastUpdated
}

// Count returns the number of entries in the MAC vendor database
func (db *MacVendorDB) Count() int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.vendors)
}
