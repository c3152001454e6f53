package controller

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ValentinKolb/dState/cmd/util"
	"github.com/ValentinKolb/dState/rpc/common"
	rpcController "github.com/ValentinKolb/dState/rpc/controller"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	proxy rpcController.IStoreProxy

	// ControllerCommands represents the controller command group
	ControllerCommands = &cobra.Command{
		Use:   "controller",
		Short: "Control the state of a running peer",
		Long: `Waits for a peer to connect (see "dstate peer") and executes one operation
on its state container.`,
		PersistentPreRunE:  connect,
		PersistentPostRunE: disconnect,
	}
)

func init() {
	util.SetupTransportFlags(ControllerCommands)

	key := "connect-timeout"
	ControllerCommands.PersistentFlags().Duration(key, common.DefaultConnectTimeout, util.WrapString("How long to wait for the peer to connect"))

	// Add subcommands
	ControllerCommands.AddCommand(commitCmd)
	ControllerCommands.AddCommand(dispatchCmd)
	ControllerCommands.AddCommand(getCmd)
	ControllerCommands.AddCommand(clearCmd)
}

// connect waits for the peer and stores the proxy
func connect(cmd *cobra.Command, _ []string) error {
	if err := util.Setup(cmd); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}
	t, err := util.GetControllerTransport()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proxy, err = rpcController.GetStoreFromPeer(ctx, common.ControllerConfig{
		Transport:      util.GetTransportConfig(),
		ProcessType:    common.ProcessTypeController,
		ConnectTimeout: viper.GetDuration("connect-timeout"),
		LogLevel:       viper.GetString("log-level"),
	}, t, s)
	return err
}

// disconnect closes the proxy
func disconnect(*cobra.Command, []string) error {
	if proxy == nil {
		return nil
	}
	return proxy.Close()
}
