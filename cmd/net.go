package main

import (
	"fmt"
	"net"
	"strconv"
)

const defaultHTTPPort = 8080

// listen opens a TCP listener on addr. A bare host listens on defaultHTTPPort.
func listen(addr string) (net.Listener, error) {
	host, port, err := splitHostPort(addr, defaultHTTPPort)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP address %q: %w", addr, err)
	}
	return net.Listen("tcp", net.JoinHostPort(host, port))
}

// subnetOfListener returns the IP network (CIDR) of the interface that contains
// the local address used by the provided listener.
func subnetOfListener(l net.Listener) (net.IPNet, error) {
	tcpAddr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return net.IPNet{}, fmt.Errorf("listener is not TCP")
	}
	ip := tcpAddr.IP
	if ip == nil || ip.IsUnspecified() {
		return net.IPNet{}, fmt.Errorf("listener has unspecified IP %v", ip)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return net.IPNet{}, err
	}
	for _, ifi := range ifaces {
		addrs, _ := ifi.Addrs()
		for _, a := range addrs {
			var ipnet *net.IPNet
			switch v := a.(type) {
			case *net.IPNet:
				ipnet = v
			case *net.IPAddr:
				ipnet = &net.IPNet{IP: v.IP, Mask: v.IP.DefaultMask()}
			default:
				continue
			}
			if ipnet.Contains(ip) || ipnet.IP.Equal(ip) {
				return *ipnet, nil
			}
		}
	}
	return net.IPNet{}, fmt.Errorf("no interface found for ip %v", ip)
}

// reachability describes who can connect to l: the subnet of its interface,
// or every interface for an unspecified address.
func reachability(l net.Listener) string {
	if tcpAddr, ok := l.Addr().(*net.TCPAddr); ok && tcpAddr.IP.IsUnspecified() {
		return "all interfaces"
	}
	subnet, err := subnetOfListener(l)
	if err != nil {
		return "this host only"
	}
	return "subnet " + subnet.String()
}

// splitHostPort splits an address into host and port, using defaultPort if no port is specified.
func splitHostPort(addr string, defaultPort int) (string, string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port, err = net.SplitHostPort(addr + ":" + strconv.Itoa(defaultPort))
		if err != nil {
			return "", "", err
		}
	}
	return host, port, nil
}
