package health

import (
	"context"
	"net"
	"time"
)

// defaultPingPort is dialed when a ping target has no port
const defaultPingPort = "80"

// TCPChecker stands in for ping targets: it opens and closes a TCP
// connection. ICMP would need raw socket privileges.
type TCPChecker struct {
	Address string
	Timeout time.Duration
}

// NewTCPChecker creates a TCP checker for address, host or host:port
func NewTCPChecker(address string) *TCPChecker {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, defaultPingPort)
	}
	return &TCPChecker{
		Address: address,
		Timeout: DefaultTimeout * time.Second,
	}
}

// Check dials the address
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	dialer := &net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return failed(t.Address, start, "connection failed: %v", err)
	}
	conn.Close()

	return Result{
		Target:    t.Address,
		Healthy:   true,
		Message:   "connected to " + t.Address,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Target returns the dialed address
func (t *TCPChecker) Target() string {
	return t.Address
}

// WithTimeout sets the connection timeout
func (t *TCPChecker) WithTimeout(timeout time.Duration) *TCPChecker {
	t.Timeout = timeout
	return t
}
