package store

import (
	"github.com/ValentinKolb/dState/cmd/util"
	"github.com/ValentinKolb/dState/lib/persist"
	"github.com/ValentinKolb/dState/lib/state"
	"github.com/spf13/cobra"
)

var (
	opts      persist.Options
	persisted *persist.PersistedState

	// StoreCommands represents the store command group
	StoreCommands = &cobra.Command{
		Use:   "store",
		Short: "Inspect and edit the persisted snapshot without a running peer",
		Long: `Inspect and edit the persisted snapshot without a running peer. The engine
flags must match the ones the peer uses.`,
		PersistentPreRunE:  open,
		PersistentPostRunE: closeStore,
	}
)

func init() {
	util.SetupStorageFlags(StoreCommands)

	// Add subcommands
	StoreCommands.AddCommand(getCmd)
	StoreCommands.AddCommand(setCmd)
	StoreCommands.AddCommand(clearCmd)
	StoreCommands.AddCommand(checkCmd)
}

// open opens the configured store
func open(cmd *cobra.Command, _ []string) error {
	if err := util.Setup(cmd); err != nil {
		return err
	}

	var err error
	opts, err = util.GetPersistOptions()
	if err != nil {
		return err
	}

	// the snapshot is accessed without a live state
	container, err := state.New(state.Config{})
	if err != nil {
		return err
	}

	persisted, err = persist.New(opts, container)
	return err
}

// closeStore releases the store opened by open
func closeStore(*cobra.Command, []string) error {
	util.CloseStorage(opts)
	if persisted == nil {
		return nil
	}
	return persisted.Close()
}
