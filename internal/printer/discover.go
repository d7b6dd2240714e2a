package printer

import (
	"context"
	"fmt"
	"log"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	discoverWorkers = 50
	probeTimeout    = 300 * time.Millisecond
)

// LocalSubnet returns the first three octets of the first non-loopback IPv4
// address, e.g. "192.168.1".
func LocalSubnet() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			parts := strings.Split(ipnet.IP.String(), ".")
			return strings.Join(parts[:3], "."), nil
		}
	}
	return "", fmt.Errorf("no local IPv4 address found")
}

// Discover probes subnet.1 through subnet.254 on port and returns the
// addresses that accepted a connection, sorted.
func Discover(ctx context.Context, subnet string, port int) []string {
	log.Printf("Scanning subnet: %s.0/24 port %d", subnet, port)

	ipChan := make(chan string, 256)
	foundChan := make(chan string, 256)
	var wg sync.WaitGroup

	for i := 0; i < discoverWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for addr := range ipChan {
				if probe(ctx, addr, probeTimeout) == nil {
					foundChan <- addr
				}
			}
		}()
	}

	for i := 1; i <= 254; i++ {
		ipChan <- net.JoinHostPort(fmt.Sprintf("%s.%d", subnet, i), strconv.Itoa(port))
	}
	close(ipChan)

	go func() {
		wg.Wait()
		close(foundChan)
	}()

	var found []string
	for addr := range foundChan {
		found = append(found, addr)
	}
	sort.Strings(found)
	return found
}

func probe(ctx context.Context, addr string, timeout time.Duration) error {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}
