package net

import (
	"fmt"
	"log"
	"net"
)

// OutboundIP finds the local address other machines on the LAN can reach us on.
func OutboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// No route out; fall back to checking local interfaces.
		return interfaceIP()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func interfaceIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	log.Println("[HOST] No suitable local IP found, share link may not work.")
	return "127.0.0.1"
}

// ShareURL is the spectator address for a hub served on port.
func ShareURL(port int) string {
	return fmt.Sprintf("ws://%s:%d/watch", OutboundIP(), port)
}
