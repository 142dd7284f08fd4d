package net

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_stepboard._tcp"

// ErrNoService is returned by Discover when nothing answered in time.
var ErrNoService = errors.New("no step service found")

// Advertise announces a step service listening on port. Shut the returned
// server down to withdraw it.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"StepBoard"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	log.Printf("[MDNS] Advertising %s on port %d as %s", ServiceType, port, host)
	return server, nil
}

// Discover browses for a step service and returns the base URL of the first one
// that answers.
func Discover(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *mdns.ServiceEntry, 8)
	result := firstService(entries, cancel)

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.QueryContext(ctx, params)
	close(entries)

	if url := <-result; url != "" {
		log.Printf("[MDNS] Discovered step service at %s", url)
		return url, nil
	}
	if err != nil {
		return "", fmt.Errorf("mdns query: %w", err)
	}
	return "", ErrNoService
}

// firstService drains entries until it is closed and then yields the URL of the
// first usable entry, or "" if none was. hit runs once, on that first entry.
func firstService(entries <-chan *mdns.ServiceEntry, hit func()) <-chan string {
	result := make(chan string, 1)
	go func() {
		url := ""
		for e := range entries {
			if url != "" || e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			url = fmt.Sprintf("http://%s:%d", e.AddrV4.String(), e.Port)
			hit()
		}
		result <- url
	}()
	return result
}
