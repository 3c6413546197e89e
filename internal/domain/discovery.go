package domain

// DiscoveryPrefix is the etcd prefix under which workers announce themselves.
// Each key holds a JSON encoded WorkerSeed bound to the worker's lease.
const DiscoveryPrefix = "/dispatch/workers/"
