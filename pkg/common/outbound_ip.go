package common

import (
	"net"
)

// GetOutboundIP gets preferred outbound ip of this machine, falling back to
// the first global unicast interface address. Returns nil if none is found.
// https://stackoverflow.com/a/37382208
func GetOutboundIP() net.IP {
	if conn, err := net.Dial("udp", "8.8.8.8:80"); err == nil {
		defer conn.Close()
		return conn.LocalAddr().(*net.UDPAddr).IP
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for _, i := range ifaces {
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip.IsGlobalUnicast() {
				return ip
			}
		}
	}
	return nil
}
