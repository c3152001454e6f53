package common

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Process Type
// --------------------------------------------------------------------------

// ProcessType identifies which side of the bridge a process runs
type ProcessType string

const (
	ProcessTypeController ProcessType = "controller"
	ProcessTypePeer       ProcessType = "peer"

	// ProcessTypeEnv is read when no process type is configured
	ProcessTypeEnv = "DSTATE_PROCESS_TYPE"
)

// DetectProcessType returns configured if set, otherwise the value of ProcessTypeEnv.
// An empty result means unknown.
func DetectProcessType(configured ProcessType) ProcessType {
	if configured != "" {
		return configured
	}
	return ProcessType(strings.ToLower(strings.TrimSpace(os.Getenv(ProcessTypeEnv))))
}

// --------------------------------------------------------------------------
// Transport configuration struct
// --------------------------------------------------------------------------

// TransportConfig holds the settings shared by all transports
type TransportConfig struct {
	// Endpoint is the socket path (unix), host:port (tcp) or URL / host:port (ws)
	Endpoint string
	// TimeoutSecond bounds dialing and single writes (0 = no timeout)
	TimeoutSecond int

	// Socket settings (ignored by transports they do not apply to)
	WriteBufferSize int
	ReadBufferSize  int
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // 0 = os default
}

// Timeout returns TimeoutSecond as a duration
func (c TransportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// --------------------------------------------------------------------------
// Controller configuration struct
// --------------------------------------------------------------------------

const (
	DefaultConnectTimeout    = 10 * time.Second
	DefaultHeartbeatInterval = time.Second
)

// ControllerConfig configures the controller side of the bridge
type ControllerConfig struct {
	Transport TransportConfig

	// ProcessType of this process. Empty = detect from the environment.
	ProcessType ProcessType
	// ConnectTimeout bounds the wait for the first peer (0 = DefaultConnectTimeout)
	ConnectTimeout time.Duration

	// Logging configuration
	LogLevel string
}

// GetConnectTimeout returns the effective connect timeout
func (c *ControllerConfig) GetConnectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}

// String returns a formatted string representation of the configuration
func (c *ControllerConfig) String() string {
	var sb strings.Builder

	addSection, addField := formatter(&sb)

	addSection("Controller")
	addField("Process Type", valueOrDefault(string(DetectProcessType(c.ProcessType)), "(unknown)"))
	addField("Connect Timeout", c.GetConnectTimeout().String())

	writeTransport(addSection, addField, c.Transport)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Peer configuration struct
// --------------------------------------------------------------------------

// PeerConfig configures the peer side of the bridge
type PeerConfig struct {
	Transport TransportConfig

	// HeartbeatInterval is the delay between two Connect messages (0 = DefaultHeartbeatInterval)
	HeartbeatInterval time.Duration
	// Reconnect resumes the heartbeat when the acknowledged connection is lost.
	// Without it the first acknowledgement stops the heartbeat for good.
	Reconnect bool

	// Logging configuration
	LogLevel string
}

// GetHeartbeatInterval returns the effective heartbeat interval
func (c *PeerConfig) GetHeartbeatInterval() time.Duration {
	if c.HeartbeatInterval <= 0 {
		return DefaultHeartbeatInterval
	}
	return c.HeartbeatInterval
}

// String returns a formatted string representation of the configuration
func (c *PeerConfig) String() string {
	var sb strings.Builder

	addSection, addField := formatter(&sb)

	addSection("Peer")
	addField("Heartbeat Interval", c.GetHeartbeatInterval().String())
	addField("Reconnect", fmt.Sprintf("%t", c.Reconnect))

	writeTransport(addSection, addField, c.Transport)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// formatter creates the helper functions for consistent formatting
func formatter(sb *strings.Builder) (addSection func(title string), addField func(name, value string)) {
	addSection = func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField = func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	return addSection, addField
}

func writeTransport(addSection func(string), addField func(string, string), c TransportConfig) {
	addSection("Transport")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.WriteBufferSize > 0 {
		addField("Write Buffer", fmt.Sprintf("%d bytes", c.WriteBufferSize))
	}
	if c.ReadBufferSize > 0 {
		addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
	}
	addField("TCP No Delay", fmt.Sprintf("%t", c.TCPNoDelay))
	if c.TCPKeepAliveSec > 0 {
		addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
	}
}

func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
