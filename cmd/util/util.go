package util

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ValentinKolb/dState/lib/persist"
	"github.com/ValentinKolb/dState/lib/store"
	"github.com/ValentinKolb/dState/lib/store/lstore"
	"github.com/ValentinKolb/dState/lib/store/sqlstore"
	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/serializer"
	"github.com/ValentinKolb/dState/rpc/transport"
	"github.com/ValentinKolb/dState/rpc/transport/tcp"
	"github.com/ValentinKolb/dState/rpc/transport/unix"
	"github.com/ValentinKolb/dState/rpc/transport/ws"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("rpc")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads .env files and configures viper to read DSTATE_* variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dstate")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags (including the inherited ones) to viper
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.Flags())
}

// Setup binds the flags, initializes the loggers and starts the metrics endpoint (if configured).
// It is used as PersistentPreRunE of every command group.
func Setup(cmd *cobra.Command) error {
	if err := BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}
	return StartMetricsServer(viper.GetString("metrics-endpoint"))
}

// StartMetricsServer serves the metrics in Prometheus format on endpoint/metrics.
// An empty endpoint disables the server.
func StartMetricsServer(endpoint string) error {
	if endpoint == "" {
		return nil
	}

	ln, err := net.Listen("tcp", endpoint)
	if err != nil {
		return fmt.Errorf("failed to start metrics endpoint: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteMetrics(w)
	})
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics endpoint stopped: %v", err)
		}
	}()
	Logger.Infof("Serving metrics on http://%s/metrics", ln.Addr())
	return nil
}

// --------------------------------------------------------------------------
// Transport
// --------------------------------------------------------------------------

// SetupTransportFlags adds the socket settings to a command
func SetupTransportFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 5, WrapString("Timeout in seconds for dialing and writing (0 = no timeout)"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 = os default, only for tcp)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 = os default, only for tcp)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time (in seconds, 0 = os default, only for tcp)"))
}

// GetTransportConfig reads the transport configuration from viper
func GetTransportConfig() common.TransportConfig {
	return common.TransportConfig{
		Endpoint:        viper.GetString("endpoint"),
		TimeoutSecond:   viper.GetInt("timeout"),
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.ByName(viper.GetString("serializer"))
}

// GetControllerTransport creates the listening transport based on configuration
func GetControllerTransport() (transport.IControllerTransport, error) {
	switch viper.GetString("transport") {
	case "unix":
		return unix.NewUnixDefaultServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "ws":
		return ws.NewWSServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetPeerTransport creates the dialing transport based on configuration
func GetPeerTransport() (transport.IPeerTransport, error) {
	switch viper.GetString("transport") {
	case "unix":
		return unix.NewUnixClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "ws":
		return ws.NewWSClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// --------------------------------------------------------------------------
// Storage
// --------------------------------------------------------------------------

// SetupStorageFlags adds the flags selecting and configuring the storage engine
func SetupStorageFlags(cmd *cobra.Command) {
	key := "engine"
	cmd.PersistentFlags().String(key, "file", WrapString("Storage engine (file, sqlite, memory)"))

	key = "file-name"
	cmd.PersistentFlags().String(key, persist.DefaultFileName, WrapString("Name of the store file without extension"))

	key = "dir"
	cmd.PersistentFlags().String(key, "", WrapString("Directory of the store file (default: user config dir)"))

	key = "encryption-key"
	cmd.PersistentFlags().String(key, "", WrapString("Encrypts the store file with this key (only for the file engine)"))

	key = "storage-key"
	cmd.PersistentFlags().String(key, persist.DefaultStorageKey, WrapString("Key the state snapshot is stored under"))
}

// GetPersistOptions reads the storage configuration from viper. For engines
// other than "file" the store is opened here and returned in Options.Storage,
// the caller has to close it (see CloseStorage).
func GetPersistOptions() (persist.Options, error) {
	opts := persist.Options{
		StorageKey:          viper.GetString("storage-key"),
		FileName:            viper.GetString("file-name"),
		StorageFileLocation: viper.GetString("dir"),
		EncryptionKey:       viper.GetString("encryption-key"),
	}

	var factory store.Factory
	switch engine := viper.GetString("engine"); engine {
	case "file":
		return opts, nil
	case "sqlite":
		factory = sqlstore.NewSQLiteStore
	case "memory":
		factory = lstore.NewLocalStoreFactory
	default:
		return opts, fmt.Errorf("invalid engine %s (must be one of file, sqlite, memory)", engine)
	}

	s, err := factory(store.Config{
		Name:          opts.FileName,
		Dir:           opts.StorageFileLocation,
		EncryptionKey: opts.EncryptionKey,
	})
	if err != nil {
		return opts, err
	}
	opts.Storage = s
	return opts, nil
}

// CloseStorage closes the store opened by GetPersistOptions (if any)
func CloseStorage(opts persist.Options) {
	if c, ok := opts.Storage.(store.ICloser); ok {
		if err := c.Close(); err != nil {
			Logger.Warningf("failed to close store: %v", err)
		}
	}
}
