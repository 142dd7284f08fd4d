package net

import (
	gonet "net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
)

func TestFirstServiceKeepsFirstUsableEntry(t *testing.T) {
	entries := make(chan *mdns.ServiceEntry, 4)
	hits := 0
	result := firstService(entries, func() { hits++ })

	entries <- &mdns.ServiceEntry{Port: 5000}
	entries <- &mdns.ServiceEntry{AddrV4: gonet.IPv4(10, 0, 0, 5), Port: 0}
	entries <- &mdns.ServiceEntry{AddrV4: gonet.IPv4(10, 0, 0, 7), Port: 5000}
	entries <- &mdns.ServiceEntry{AddrV4: gonet.IPv4(10, 0, 0, 9), Port: 6000}
	// Entries still buffered when the query ends are not lost.
	close(entries)

	assert.Equal(t, "http://10.0.0.7:5000", <-result)
	assert.Equal(t, 1, hits)
}

func TestFirstServiceNothingUsable(t *testing.T) {
	entries := make(chan *mdns.ServiceEntry, 1)
	result := firstService(entries, func() { t.Fatal("unexpected hit") })
	entries <- &mdns.ServiceEntry{Port: 5000}
	close(entries)
	assert.Equal(t, "", <-result)
}
