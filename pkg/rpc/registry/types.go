// Package registry implements service registration: announcing a running
// instance to the coordination store and keeping its lease alive for as long
// as the process runs.
package registry

// ServiceInstance is the JSON document stored at Key, and the unit Discovery
// reconstructs on the other end.
type ServiceInstance struct {
	// Name is the logical service name instances of the same deployment
	// share; discovery looks these up by Name.
	Name string `json:"name"`

	// Key is the instance's unique path in the coordination store:
	// "<namespace>/<name>/<unixSeconds>/<uuid>".
	Key string `json:"key"`

	// Endpoint is the dialable "host:port" clients connect to.
	Endpoint string `json:"endpoint"`
}
