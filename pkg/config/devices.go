package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ExclusiveAccount/homemon/pkg/models"
)

// VendorLookup resolves a MAC address to a manufacturer name
type VendorLookup interface {
	LookupVendor(mac string) string
}

// LoadDevices reads a device descriptor file. The format follows the file
// extension: .json for a JSON array, .yaml or .yml for a YAML list. Records
// with an empty manufacturer are filled from vendors when it is not nil.
func LoadDevices(path string, vendors VendorLookup) ([]models.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device file: %w", err)
	}

	var specs []models.DeviceSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		specs, err = decodeJSON(data)
	case ".yaml", ".yml":
		specs, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, err
	}

	return BuildDevices(specs, vendors)
}

// BuildDevices validates specs in order. The first invalid record fails the
// whole set with a *models.ValidationError carrying its index.
func BuildDevices(specs []models.DeviceSpec, vendors VendorLookup) ([]models.Device, error) {
	devices := make([]models.Device, 0, len(specs))
	for i, spec := range specs {
		if spec.Manufacturer == "" && spec.MAC != "" && vendors != nil {
			spec.Manufacturer = vendors.LookupVendor(spec.MAC)
		}

		d, err := models.NewDevice(spec)
		if err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				verr.Index = i
			}
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func decodeJSON(data []byte) ([]models.DeviceSpec, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var specs []models.DeviceSpec
	if err := dec.Decode(&specs); err != nil {
		return nil, &models.ValidationError{Field: "document", Index: -1, Reason: err.Error()}
	}
	return specs, nil
}

func decodeYAML(data []byte) ([]models.DeviceSpec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var specs []models.DeviceSpec
	if err := dec.Decode(&specs); err != nil && !errors.Is(err, io.EOF) {
		return nil, &models.ValidationError{Field: "document", Index: -1, Reason: err.Error()}
	}
	return specs, nil
}
