package peer

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ValentinKolb/dState/cmd/util"
	"github.com/ValentinKolb/dState/lib/persist"
	"github.com/ValentinKolb/dState/lib/state"
	"github.com/ValentinKolb/dState/rpc/common"
	rpcPeer "github.com/ValentinKolb/dState/rpc/peer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// PeerCmd runs the demo peer
	PeerCmd = &cobra.Command{
		Use:   "peer",
		Short: "Run a demo peer holding a persisted state container",
		Long: `Run a demo peer: a container with a counter and a todo list. The state is
restored from the store on startup, persisted after every mutation and
exposed to a controller process (see "dstate controller").

Mutations: increment, decrement, set-count, add-todo, toggle-todo, remove-todo, reset
Actions:   add-todos`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return util.Setup(cmd)
		},
		RunE: run,
	}
)

func init() {
	util.SetupTransportFlags(PeerCmd)
	util.SetupStorageFlags(PeerCmd)

	key := "overwrite"
	PeerCmd.Flags().Bool(key, false, util.WrapString("Replace the initial state with the persisted snapshot instead of merging them"))

	key = "dev"
	PeerCmd.Flags().Bool(key, false, util.WrapString("Development mode: neither restore nor persist the state"))

	key = "disable-storage-check"
	PeerCmd.Flags().Bool(key, false, util.WrapString("Skip the store check on startup"))

	key = "paths"
	PeerCmd.Flags().StringSlice(key, nil, util.WrapString("Only persist these dot paths of the state (e.g. todos,count)"))

	key = "reset-mutation"
	PeerCmd.Flags().String(key, "reset", util.WrapString("Mutation that deletes the persisted snapshot instead of writing it (empty = none)"))

	key = "ipc"
	PeerCmd.Flags().Bool(key, true, util.WrapString("Expose the container to a controller process"))

	key = "heartbeat-interval"
	PeerCmd.Flags().Duration(key, common.DefaultHeartbeatInterval, util.WrapString("Delay between two connect attempts"))

	key = "reconnect"
	PeerCmd.Flags().Bool(key, true, util.WrapString("Announce the peer again when the controller disconnects"))
}

// run starts the peer and blocks until the process is interrupted
func run(_ *cobra.Command, _ []string) error {
	opts, err := util.GetPersistOptions()
	if err != nil {
		return err
	}
	defer util.CloseStorage(opts)

	opts.Overwrite = viper.GetBool("overwrite")
	opts.Dev = viper.GetBool("dev")
	opts.DisableStorageCheck = viper.GetBool("disable-storage-check")
	opts.Paths = viper.GetStringSlice("paths")
	opts.ResetMutation = viper.GetString("reset-mutation")
	opts.IPC = viper.GetBool("ipc")

	var bridge persist.Bridge
	if opts.IPC {
		s, err := util.GetSerializer()
		if err != nil {
			return err
		}
		t, err := util.GetPeerTransport()
		if err != nil {
			return err
		}

		p := rpcPeer.NewPeer(common.PeerConfig{
			Transport:         util.GetTransportConfig(),
			HeartbeatInterval: viper.GetDuration("heartbeat-interval"),
			Reconnect:         viper.GetBool("reconnect"),
			LogLevel:          viper.GetString("log-level"),
		}, t, s)
		defer p.Close()
		bridge = p
	}

	container, err := state.New(demoConfig(persist.Create(opts, bridge)))
	if err != nil {
		return err
	}

	container.Subscribe(func(m state.Mutation, s any) error {
		rpcPeer.Logger.Infof("%s(%v) -> %v", m.Type, m.Payload, s)
		return nil
	})
	rpcPeer.Logger.Infof("Peer running, state: %v", container.State())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	rpcPeer.Logger.Infof("Shutting down")
	return nil
}
