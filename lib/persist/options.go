package persist

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dState/lib/state"
	"github.com/ValentinKolb/dState/lib/store"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultStorageKey = "state"
	DefaultFileName   = "dstate"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Reducer selects the part of the state that is persisted
type Reducer func(state any, paths []string) any

// FilterFunc returns true for mutations that must not trigger a write
type FilterFunc func(m state.Mutation) bool

// MigrateFunc upgrades a persisted snapshot. old is nil when no snapshot exists.
type MigrateFunc func(old any) (any, error)

// Options configure a PersistedState. Zero values select the defaults.
type Options struct {
	// StorageKey is the key the snapshot is stored under (default "state")
	StorageKey string
	// FileName is the store file name without extension (default "dstate")
	FileName string
	// EncryptionKey enables encryption of the store file
	EncryptionKey string
	// StorageFileLocation overrides the directory of the store file
	StorageFileLocation string

	// Overwrite replaces the initial state with the snapshot instead of merging them
	Overwrite bool
	// DisableStorageCheck skips the sentinel write/read/delete check on startup
	DisableStorageCheck bool
	// Dev disables loading, persisting and migrations
	Dev bool
	// IPC activates the remote bridge
	IPC bool

	// Reducer selects what is persisted (default DefaultReducer)
	Reducer Reducer
	// ArrayMerger combines arrays while merging the snapshot into the initial state (default CombineMerge)
	ArrayMerger ArrayMerger
	// Paths are passed to the reducer. Empty means the whole state.
	Paths []string

	// ResetMutation is a mutation type that deletes the snapshot instead of writing it
	ResetMutation string
	// Filter skips writes for matching mutations
	Filter FilterFunc

	// Migrations upgrade the snapshot when the store is opened, keyed by semantic version
	Migrations map[string]MigrateFunc
	// ProjectVersion is the upper bound for migrations (empty = all)
	ProjectVersion string

	// Storage is used instead of the file store when set
	Storage store.IStore
}

// withDefaults returns a copy of o with every unset field replaced by its default
func (o Options) withDefaults() Options {
	if o.StorageKey == "" {
		o.StorageKey = DefaultStorageKey
	}
	if o.FileName == "" {
		o.FileName = DefaultFileName
	}
	if o.Reducer == nil {
		o.Reducer = DefaultReducer
	}
	if o.ArrayMerger == nil {
		o.ArrayMerger = CombineMerge
	}
	o.Paths = append([]string(nil), o.Paths...)
	return o
}

// String returns a formatted representation of the options
func (o Options) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Storage")
	addField("Storage Key", o.StorageKey)
	addField("File Name", o.FileName)
	addField("File Location", valueOr(o.StorageFileLocation, "(default)"))
	addField("Encrypted", fmt.Sprintf("%t", o.EncryptionKey != ""))
	addField("Custom Storage", fmt.Sprintf("%t", o.Storage != nil))
	addField("Check Storage", fmt.Sprintf("%t", !o.DisableStorageCheck))

	addSection("Behaviour")
	addField("Overwrite", fmt.Sprintf("%t", o.Overwrite))
	addField("Dev", fmt.Sprintf("%t", o.Dev))
	addField("IPC", fmt.Sprintf("%t", o.IPC))
	addField("Paths", valueOr(strings.Join(o.Paths, ", "), "(all)"))
	addField("Reset Mutation", valueOr(o.ResetMutation, "(none)"))

	addSection("Migrations")
	addField("Count", fmt.Sprintf("%d", len(o.Migrations)))
	addField("Project Version", valueOr(o.ProjectVersion, "(latest)"))

	return sb.String()
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
