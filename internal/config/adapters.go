package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/resume-ingest/internal/models"
	"alfredoptarigan/resume-ingest/internal/services"
)

type adaptersFile struct {
	Adapters []adapterEntry `yaml:"adapters"`
}

// adapterEntry uses pointers so a file can override a single field.
type adapterEntry struct {
	Name       string            `yaml:"name"`
	Priority   *int              `yaml:"priority"`
	Enabled    *bool             `yaml:"enabled"`
	MediaTypes []string          `yaml:"media_types"`
	Confidence *float64          `yaml:"confidence"`
	Options    map[string]string `yaml:"options"`
}

// LoadAdapters builds the adapter table from the built-in defaults, the
// OCR_ENABLED and VENDOR_ENABLED switches, the ADAPTERS_CONFIG file and
// finally ADAPTER_<NAME>_ENABLED / ADAPTER_<NAME>_PRIORITY.
func LoadAdapters(cfg *Config) ([]services.AdapterDescriptor, error) {
	descs := services.DefaultAdapterDescriptors()
	for i := range descs {
		switch descs[i].Name {
		case services.AdapterOCR:
			descs[i].Enabled = cfg.OCR.Enabled
		case services.AdapterVendor:
			descs[i].Enabled = cfg.Vendor.Enabled
		}
	}

	if path := cfg.Storage.AdaptersConfig; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read adapters config: %w", err)
		}
		if descs, err = ApplyAdapterYAML(descs, data); err != nil {
			return nil, err
		}
	}

	return applyAdapterEnv(descs, os.Getenv)
}

// ApplyAdapterYAML overlays a YAML adapter document onto descs by name.
func ApplyAdapterYAML(descs []services.AdapterDescriptor, data []byte) ([]services.AdapterDescriptor, error) {
	var file adaptersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse adapters config: %w", err)
	}

	out := append([]services.AdapterDescriptor(nil), descs...)
	for _, e := range file.Adapters {
		i := indexOf(out, e.Name)
		if i < 0 {
			return nil, fmt.Errorf("adapters config: unknown adapter %q", e.Name)
		}
		if e.Priority != nil {
			out[i].Priority = *e.Priority
		}
		if e.Enabled != nil {
			out[i].Enabled = *e.Enabled
		}
		if len(e.MediaTypes) > 0 {
			mts := make([]string, 0, len(e.MediaTypes))
			for _, mt := range e.MediaTypes {
				mts = append(mts, models.NormalizeMediaType(mt))
			}
			out[i].MediaTypes = mts
		}
		if e.Confidence != nil {
			if *e.Confidence < 0 || *e.Confidence > 1 {
				return nil, fmt.Errorf("adapters config: %s confidence %v out of range", e.Name, *e.Confidence)
			}
			out[i].Confidence = *e.Confidence
		}
		if len(e.Options) > 0 {
			out[i].Options = e.Options
		}
	}
	return out, nil
}

func applyAdapterEnv(descs []services.AdapterDescriptor, getenv func(string) string) ([]services.AdapterDescriptor, error) {
	for i := range descs {
		prefix := "ADAPTER_" + envName(descs[i].Name) + "_"

		if v := getenv(prefix + "ENABLED"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%sENABLED: %w", prefix, err)
			}
			descs[i].Enabled = b
		}
		if v := getenv(prefix + "PRIORITY"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%sPRIORITY: %w", prefix, err)
			}
			descs[i].Priority = n
		}
	}
	return descs, nil
}

// envName turns "pdf-structure" into "PDF_STRUCTURE".
func envName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func indexOf(descs []services.AdapterDescriptor, name string) int {
	for i := range descs {
		if descs[i].Name == name {
			return i
		}
	}
	return -1
}
