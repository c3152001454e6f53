package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dState/lib/state"
	"github.com/spf13/cobra"
)

var (
	silent bool

	commitCmd = &cobra.Command{
		Use:   "commit [mutation] [payload]",
		Short: "Commits a mutation in the peer's container",
		Long:  "Commits a mutation in the peer's container. The payload is parsed as JSON, anything else is sent as string.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts *state.Options
			if silent {
				opts = &state.Options{Silent: true}
			}
			if err := proxy.Commit(args[0], parsePayload(args[1:]), opts); err != nil {
				return err
			}
			fmt.Println("committed successfully")
			return nil
		},
	}
	dispatchCmd = &cobra.Command{
		Use:   "dispatch [action] [payload]",
		Short: "Dispatches an action in the peer's container",
		Long:  "Dispatches an action in the peer's container. The payload is parsed as JSON, anything else is sent as string.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := proxy.Dispatch(args[0], parsePayload(args[1:]), nil); err != nil {
				return err
			}
			fmt.Println("dispatched successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Prints the current state of the peer's container as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := proxy.GetState(context.Background())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Deletes the persisted snapshot of the peer (the live state is kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := proxy.ClearState(); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
)

func init() {
	commitCmd.Flags().BoolVar(&silent, "silent", false, "Do not notify subscribers (the change is not persisted)")
}

// parsePayload returns the JSON value of the first arg, the raw string if it
// is no valid JSON and nil without args
func parsePayload(args []string) any {
	if len(args) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(args[0]), &v); err != nil {
		return args[0]
	}
	return v
}
