// ABOUTME: mDNS discovery for rstream servers
// ABOUTME: Servers advertise _rstream._tcp, clients browse for one
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_rstream._tcp"

// ServerInfo describes a discovered server.
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// Advertiser announces a running server on the local network until
// stopped.
type Advertiser struct {
	server *mdns.Server
}

// Advertise publishes the named service on port.
func Advertise(name string, port int) (*Advertiser, error) {
	ips, err := localIPs()
	if err != nil {
		return nil, fmt.Errorf("local addresses: %w", err)
	}
	service, err := mdns.NewMDNSService(name, serviceType, "", "", port, ips, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("mdns server: %w", err)
	}
	log.Printf("Advertising %s as %s on port %d", serviceType, name, port)
	return &Advertiser{server: server}, nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	a.server.Shutdown()
}

// Browse queries the local network and returns the first server found
// before ctx expires.
func Browse(ctx context.Context) (*ServerInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 10)
	found := make(chan *ServerInfo, 1)

	go func() {
		defer close(found)
		for entry := range entries {
			if entry.AddrV4 == nil {
				continue
			}
			select {
			case found <- &ServerInfo{Name: entry.Name, Host: entry.AddrV4.String(), Port: entry.Port}:
			default:
			}
		}
	}()

	params := &mdns.QueryParam{
		Service: serviceType,
		Domain:  "local",
		Timeout: 3 * time.Second,
		Entries: entries,
	}
	if err := mdns.Query(params); err != nil {
		close(entries)
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	close(entries)

	select {
	case server, ok := <-found:
		if !ok {
			return nil, fmt.Errorf("no %s service found", serviceType)
		}
		log.Printf("Discovered server %s at %s:%d", server.Name, server.Host, server.Port)
		return server, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// localIPs returns the machine's non-loopback IPv4 addresses.
func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	return ips, nil
}
