package store

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// --------------------------------------------------------------------------
// Migrations
// --------------------------------------------------------------------------

// MigrationFunc upgrades the content of a store to a schema version.
type MigrationFunc func(s IStore) error

// Migrations maps a semantic version ("1.2.0" or "v1.2.0") to the migration that upgrades to it.
type Migrations map[string]MigrationFunc

// RunMigrations applies all migrations newer than the last applied version
// (stored under MigrationVersionKey) and not newer than projectVersion, in
// ascending semver order. An empty projectVersion means no upper bound.
// The recorded version advances after every successful migration, so a failed
// run resumes with the failed migration on the next call.
func RunMigrations(s IStore, migrations Migrations, projectVersion string) error {
	if len(migrations) == 0 {
		return nil
	}

	// canonical version -> key in the migrations map
	keys := make(map[string]string, len(migrations))
	versions := make([]string, 0, len(migrations))
	for version := range migrations {
		canonical, err := canonicalVersion(version)
		if err != nil {
			return err
		}
		if other, dup := keys[canonical]; dup {
			return Errorf(RetCInvalidValue, "duplicate migration version %q and %q", other, version)
		}
		keys[canonical] = version
		versions = append(versions, canonical)
	}
	semver.Sort(versions)

	var upper string
	if projectVersion != "" {
		var err error
		if upper, err = canonicalVersion(projectVersion); err != nil {
			return err
		}
	}

	previous, err := appliedVersion(s)
	if err != nil {
		return err
	}

	for _, version := range versions {
		if previous != "" && semver.Compare(version, previous) <= 0 {
			continue
		}
		if upper != "" && semver.Compare(version, upper) > 0 {
			break
		}

		name := keys[version]
		Logger.Infof("running migration %s", name)
		if err := migrations[name](s); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		if err := s.Set(MigrationVersionKey, name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
	}
	return nil
}

// appliedVersion returns the canonical version of the last applied migration ("" if none)
func appliedVersion(s IStore) (string, error) {
	raw, ok, err := s.Get(MigrationVersionKey)
	if err != nil || !ok {
		return "", err
	}
	version, isString := raw.(string)
	if !isString {
		return "", Errorf(RetCInvalidValue, "invalid migration version record: %v", raw)
	}
	return canonicalVersion(version)
}

// canonicalVersion adds the "v" prefix expected by the semver package and validates the version
func canonicalVersion(version string) (string, error) {
	v := strings.TrimSpace(version)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", Errorf(RetCInvalidValue, "invalid migration version %q", version)
	}
	return semver.Canonical(v), nil
}
