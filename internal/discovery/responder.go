package discovery

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/config"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform"
	"github.com/lukasfriedrichsen/naptrouter/internal/sched"
)

// maxDatagram bounds request reads. Meta-data requests are tiny; anything
// larger is ignored.
const maxDatagram = 64

// Responder answers UDP meta-data requests and periodically broadcasts a
// vital sign while the device is routing.
//
// Meta-data: a datagram matching the configured request token is answered
// with "PURPOSE,MAC,IP\n". Vital sign: "MAC,TIMESTAMP\n" is sent to the
// subnet broadcast address on its own port every interval.
//
// Thread Safety:
//   - Start and Stop are safe for concurrent use and idempotent.
type Responder struct {
	cfg     config.DiscoveryConfig
	purpose string
	stack   platform.NetworkStack
	loop    *sched.Loop
	logger  *logging.Logger

	// OnVitalSign, when set, is called with the access-point MAC after
	// each broadcast. Set before Start; runs on the loop.
	OnVitalSign func(mac string)

	mu         sync.Mutex
	conn       *net.UDPConn
	vitalTimer *sched.Timer
	running    bool
}

// New creates a responder. purpose is the role string reported as the
// first meta-data field.
func New(loop *sched.Loop, stack platform.NetworkStack, cfg config.DiscoveryConfig, purpose string, logger *logging.Logger) *Responder {
	return &Responder{
		cfg:     cfg,
		purpose: purpose,
		stack:   stack,
		loop:    loop,
		logger:  logger.With("component", "discovery"),
	}
}

// Start binds the meta-data socket and arms the vital-sign timer. Calling
// Start while running is a no-op.
func (r *Responder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: r.cfg.Port})
	if err != nil {
		return fmt.Errorf("binding meta-data socket: %w", err)
	}
	r.conn = conn
	r.running = true

	go r.serve(conn)

	if r.vitalTimer == nil {
		r.vitalTimer = r.loop.NewTimer()
	}
	r.vitalTimer.Arm(r.cfg.VitalSignInterval, true, r.sendVitalSign)

	r.logger.Info("discovery responder started",
		"port", conn.LocalAddr().(*net.UDPAddr).Port,
		"vital_sign_port", r.cfg.VitalSignPort,
		"vital_sign_interval", r.cfg.VitalSignInterval)
	return nil
}

// Stop closes the socket and stops the vital sign. Calling Stop while
// stopped is a no-op.
func (r *Responder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.running = false
	r.vitalTimer.Disarm()
	r.vitalTimer = nil
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
	r.logger.Info("discovery responder stopped")
}

// Running reports whether the responder is active.
func (r *Responder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LocalAddr returns the bound meta-data address, or nil when stopped.
func (r *Responder) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// serve answers requests until the socket is closed.
func (r *Responder) serve(conn *net.UDPConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Closed by Stop, or a fatal socket error; either way the
			// responder is done with this socket.
			return
		}
		if string(buf[:n]) != r.cfg.RequestToken {
			r.logger.Debug("ignoring unknown datagram", "peer", peer.String(), "bytes", n)
			continue
		}

		reply, err := r.metaData()
		if err != nil {
			r.logger.Warn("meta-data unavailable", "error", err)
			continue
		}
		if _, err := conn.WriteToUDP(reply, peer); err != nil {
			r.logger.Warn("meta-data reply failed", "peer", peer.String(), "error", err)
		}
	}
}

// metaData renders the "PURPOSE,MAC,IP\n" response from the uplink side.
func (r *Responder) metaData() ([]byte, error) {
	mac, err := r.stack.HardwareAddr(platform.StationInterface)
	if err != nil {
		return nil, fmt.Errorf("reading hardware address: %w", err)
	}
	info, err := r.stack.IPInfo(platform.StationInterface)
	if err != nil {
		return nil, fmt.Errorf("reading ip info: %w", err)
	}
	return []byte(fmt.Sprintf("%s,%s,%s\n", r.purpose, mac, info.Address)), nil
}

// sendVitalSign broadcasts "MAC,TIMESTAMP\n" on the subnet. Runs on the
// loop; the single datagram write does not block meaningfully.
func (r *Responder) sendVitalSign() {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return
	}

	mac, err := r.stack.HardwareAddr(platform.AccessPointInterface)
	if err != nil {
		r.logger.Warn("vital sign skipped", "error", err)
		return
	}
	info, err := r.stack.IPInfo(platform.AccessPointInterface)
	if err != nil {
		r.logger.Warn("vital sign skipped", "error", err)
		return
	}
	// The access-point side carries no address until the configurator has
	// run, and it never does when router configuration failed.
	if !info.Address.Is4() || !info.Netmask.Is4() {
		r.logger.Warn("vital sign skipped", "reason", "access point has no IPv4 address")
		return
	}

	dest := &net.UDPAddr{
		IP:   broadcastAddr(info.Address, info.Netmask).AsSlice(),
		Port: r.cfg.VitalSignPort,
	}
	payload := fmt.Sprintf("%s,%d\n", mac, time.Now().Unix())
	if _, err := conn.WriteToUDP([]byte(payload), dest); err != nil {
		r.logger.Warn("vital sign broadcast failed", "dest", dest.String(), "error", err)
		return
	}
	r.logger.Debug("vital sign sent", "dest", dest.String())

	if r.OnVitalSign != nil {
		r.OnVitalSign(mac.String())
	}
}

// broadcastAddr returns the directed broadcast address of addr's subnet.
func broadcastAddr(addr, mask netip.Addr) netip.Addr {
	a := addr.As4()
	m := mask.As4()
	var out [4]byte
	for i := range a {
		out[i] = a[i] | ^m[i]
	}
	return netip.AddrFrom4(out)
}
