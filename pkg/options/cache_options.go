package options

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

var _ IOptions = (*CacheOptions)(nil)

const (
	CacheBackendFile   = "file"
	CacheBackendS3     = "s3"
	CacheBackendMemory = "memory"
)

// CacheOptions selects and configures the parameter cache backend.
type CacheOptions struct {
	// Backend is one of file, s3 or memory.
	Backend string `json:"backend" mapstructure:"backend"`

	// Dir is the cache directory for the file backend.
	Dir string `json:"dir" mapstructure:"dir"`
}

func NewCacheOptions() *CacheOptions {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return &CacheOptions{
		Backend: CacheBackendFile,
		Dir:     filepath.Join(dir, "paramsync", "params"),
	}
}

func (o *CacheOptions) Validate() []error {
	errs := []error{}

	switch o.Backend {
	case CacheBackendFile:
		if o.Dir == "" {
			errs = append(errs, fmt.Errorf("--cache.dir is required for the %s backend", o.Backend))
		}
	case CacheBackendS3, CacheBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("--cache.backend %q is not one of file, s3, memory", o.Backend))
	}

	return errs
}

func (o *CacheOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, "cache.backend", o.Backend, "Parameter cache backend: file, s3 or memory.")
	fs.StringVar(&o.Dir, "cache.dir", o.Dir, "Directory holding one .v2 cache file per vehicle (file backend).")
}
