package store

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	clearAll bool

	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Prints the persisted snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok, err := persisted.GetState()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no snapshot stored under %q", persisted.Options().StorageKey)
			}
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [json]",
		Short: "Replaces the persisted snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v any
			if err := json.Unmarshal([]byte(args[0]), &v); err != nil {
				return fmt.Errorf("snapshot must be valid JSON: %w", err)
			}
			if err := persisted.SetState(v); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Deletes the persisted snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if clearAll {
				err = persisted.Storage().Clear()
			} else {
				err = persisted.ClearState()
			}
			if err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Checks that the store can be written and read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := persisted.CheckStorage(); err != nil {
				return err
			}
			fmt.Println("store is usable")
			return nil
		},
	}
)

func init() {
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "Delete every key of the store, not only the snapshot")
}
