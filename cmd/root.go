package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/dState/cmd/controller"
	"github.com/ValentinKolb/dState/cmd/peer"
	"github.com/ValentinKolb/dState/cmd/store"
	"github.com/ValentinKolb/dState/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dstate",
		Short: "persistent state shared between processes",
		Long: fmt.Sprintf(`dState (v%s)

Keeps a state container in a peer process, persists it to disk across
restarts and lets a controller process commit mutations, dispatch actions
and read the state remotely.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dState",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dState v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(peer.PeerCmd)
	RootCmd.AddCommand(controller.ControllerCommands)
	RootCmd.AddCommand(store.StoreCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "unix", util.WrapString("transport to use (unix, tcp, ws)"))
	key = "endpoint"
	RootCmd.PersistentFlags().String(key, filepath.Join(os.TempDir(), "dstate.sock"), util.WrapString("The address the controller listens on (e.g. /tmp/dstate.sock, localhost:8080, ws://localhost:8080/dstate)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
	key = "metrics-endpoint"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("Serve metrics in Prometheus format on this address (e.g. localhost:9100, empty = disabled)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
