package discovery

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures bridge browsing.
type BrowserConfig struct {
	// BrowseTimeout bounds FindFirst when the caller's context has no
	// deadline. Default: 5 seconds.
	BrowseTimeout time.Duration

	// Interface restricts browsing to one network interface.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: 5 * time.Second,
	}
}

// MDNSBrowser finds assistant bridges using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = DefaultBrowserConfig().BrowseTimeout
	}
	return &MDNSBrowser{config: config}
}

// Browse streams bridges as they are found. Addresses seen on several
// interfaces are merged into one BridgeService, emitted once. The channel
// closes when ctx ends or Stop is called.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *BridgeService, error) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	out := make(chan *BridgeService)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(map[string]*BridgeService)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToBridge(entry.Instance, entry.HostName, entry.Port, entry.Text, entryIPs(entry))
				if existing, found := seen[svc.InstanceName]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				seen[svc.InstanceName] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(seen, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.clientOptions()...)
	}()

	return out, nil
}

// FindFirst returns the first bridge found, or ErrNotFound when browsing
// ends without a result.
func (b *MDNSBrowser) FindFirst(ctx context.Context) (*BridgeService, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.BrowseTimeout)
		defer cancel()
	}

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	select {
	case svc, ok := <-results:
		if !ok {
			return nil, ErrNotFound
		}
		return svc, nil
	case <-ctx.Done():
		return nil, ErrNotFound
	}
}

// Stop cancels every browse started by this browser.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

func (b *MDNSBrowser) clientOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		if iface, err := net.InterfaceByName(b.config.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

func entryIPs(entry *zeroconf.ServiceEntry) []net.IP {
	ips := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	ips = append(ips, entry.AddrIPv4...)
	return append(ips, entry.AddrIPv6...)
}

// entryToBridge builds a BridgeService from the parts of a zeroconf entry.
func entryToBridge(instance, host string, port int, text []string, ips []net.IP) *BridgeService {
	if port == 0 {
		port = DefaultPort
	}
	svc := &BridgeService{
		InstanceName: instance,
		Host:         strings.TrimSuffix(host, "."),
		Port:         uint16(port),
	}
	for _, ip := range ips {
		svc.Addresses = append(svc.Addresses, ip.String())
	}
	for _, kv := range text {
		key, value, _ := strings.Cut(kv, "=")
		switch key {
		case TXTKeyFirmware:
			svc.Firmware = value
		case TXTKeyModel:
			svc.Model = value
		case TXTKeyPath:
			svc.Path = value
		}
	}
	return svc
}

// mergeAddresses adds new addresses to existing, avoiding duplicates.
func mergeAddresses(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range add {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}
