package nsmgr

// Kind is the tagged variant a Device carries, per spec.md §9: behavior that
// differs by kind lives in a small dispatch function (dispatchForwarding,
// below), never in a class hierarchy.
type Kind string

const (
	Host      Kind = "host"
	Router    Kind = "router"
	Switch    Kind = "switch"
	DNSServer Kind = "dns_server"
)

func (k Kind) Valid() bool {
	switch k {
	case Host, Router, Switch, DNSServer:
		return true
	default:
		return false
	}
}

// dispatchForwarding returns whether a namespace of the given kind should
// have IPv4 forwarding enabled on creation. Only routers do by default;
// callers may still flip it explicitly through EnableForwarding.
func dispatchForwarding(k Kind) bool {
	return k == Router
}
