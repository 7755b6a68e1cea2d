package observability

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"go.etcd.io/bbolt"
)

// DatabaseHealthChecker checks that the install history database can open a read transaction
type DatabaseHealthChecker struct {
	name string
	db   *bbolt.DB
}

// NewDatabaseHealthChecker creates a new database health checker
func NewDatabaseHealthChecker(name string, db *bbolt.DB) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{
		name: name,
		db:   db,
	}
}

// Name returns the name of the health checker
func (dhc *DatabaseHealthChecker) Name() string {
	return dhc.name
}

// HealthCheck performs a database health check
func (dhc *DatabaseHealthChecker) HealthCheck(_ context.Context) error {
	if dhc.db == nil {
		return errors.New("database is not open")
	}
	return dhc.db.View(func(_ *bbolt.Tx) error { return nil })
}

// ReadinessCheck performs a database readiness check
func (dhc *DatabaseHealthChecker) ReadinessCheck(ctx context.Context) error {
	return dhc.HealthCheck(ctx)
}

// BinaryHealthChecker reports whether a package manager executable is on PATH.
// A missing binary degrades its source but never fails readiness.
type BinaryHealthChecker struct {
	name     string
	binary   string
	lookPath func(string) (string, error)
}

// NewBinaryHealthChecker creates a checker for the given executable
func NewBinaryHealthChecker(name, binary string) *BinaryHealthChecker {
	return &BinaryHealthChecker{
		name:     name,
		binary:   binary,
		lookPath: exec.LookPath,
	}
}

// Name returns the name of the health checker
func (bhc *BinaryHealthChecker) Name() string {
	return bhc.name
}

// HealthCheck fails when the binary cannot be found
func (bhc *BinaryHealthChecker) HealthCheck(_ context.Context) error {
	if bhc.binary == "" {
		return errors.New("no binary configured")
	}
	if _, err := bhc.lookPath(bhc.binary); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", bhc.binary, err)
	}
	return nil
}

// ComponentHealthChecker adapts a plain function into a health and readiness checker
type ComponentHealthChecker struct {
	name  string
	check func(ctx context.Context) error
}

// NewComponentHealthChecker creates a new component health checker
func NewComponentHealthChecker(name string, check func(ctx context.Context) error) *ComponentHealthChecker {
	return &ComponentHealthChecker{
		name:  name,
		check: check,
	}
}

// Name returns the name of the health checker
func (chc *ComponentHealthChecker) Name() string {
	return chc.name
}

// HealthCheck runs the wrapped function
func (chc *ComponentHealthChecker) HealthCheck(ctx context.Context) error {
	if chc.check == nil {
		return fmt.Errorf("no check registered for %s", chc.name)
	}
	return chc.check(ctx)
}

// ReadinessCheck runs the wrapped function
func (chc *ComponentHealthChecker) ReadinessCheck(ctx context.Context) error {
	return chc.HealthCheck(ctx)
}
