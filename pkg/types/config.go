package types

import (
	"fmt"
	"strings"
)

// DefaultDBFile is the database file created inside the application directory.
const DefaultDBFile = "company_data.db"

// Config holds the parameters used to open the persistent store.
type Config struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`
	DBFile  string `json:"db_file,omitempty" yaml:"db_file,omitempty"`
}

// Validate checks that the Config is well-formed. DBFile may be empty, in
// which case DefaultDBFile is used; a DBFile containing a path separator is
// rejected so the database always lives inside DataDir.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data directory must not be empty", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.DBFile, `/\`) {
		return fmt.Errorf("%w: db file %q must be a bare file name", ErrInvalidConfig, c.DBFile)
	}
	return nil
}

// DatabaseFile returns the configured file name or DefaultDBFile.
func (c Config) DatabaseFile() string {
	if c.DBFile == "" {
		return DefaultDBFile
	}
	return c.DBFile
}
