package ws

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultPath = "/"

// parseEndpoint splits "host:port", "ws://host:port/path" or "wss://..." into
// the listen address and the http path
func parseEndpoint(endpoint string) (addr string, path string, err error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, defaultPath, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", fmt.Errorf("invalid websocket endpoint %q: %v", endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", "", fmt.Errorf("invalid websocket endpoint %q: scheme must be ws or wss", endpoint)
	}

	path = u.Path
	if path == "" {
		path = defaultPath
	}
	return u.Host, path, nil
}

// dialURL turns an endpoint into a websocket url ("host:port" becomes "ws://host:port/")
func dialURL(endpoint string) (string, error) {
	if strings.Contains(endpoint, "://") {
		if _, _, err := parseEndpoint(endpoint); err != nil {
			return "", err
		}
		return endpoint, nil
	}
	return "ws://" + endpoint + defaultPath, nil
}
