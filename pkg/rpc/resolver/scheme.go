// Package resolver provides gRPC resolver implementations for service discovery.
// It includes resolvers for etcd-based service discovery and direct connection.
package resolver

// SchemeDirect is the scheme used for direct connection without service
// discovery. Targets using this scheme should be in the format:
// direct:///ip1:port1,ip2:port2
//
// Dynamic (etcd-discovery) clients don't have a fixed scheme constant here:
// each one builds its own uuid-suffixed scheme (see NewDynamicBuilder) so
// that two BalancedClients resolving the same service name at once don't
// collide in the process-wide resolver registry.
const SchemeDirect = "direct"
