package transport

type Protocol string

const (
	TCP  Protocol = "tcp"
	Pipe Protocol = "pipe"
)

// Addr is satisfied by [net.Addr], so socket addresses can be used as is.
type Addr interface {
	Network() string
	String() string
}
