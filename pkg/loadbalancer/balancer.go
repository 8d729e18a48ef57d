// Package loadbalancer picks the next target out of a fixed list of server
// addresses in round-robin order. Originally an HTTP-redirecting balancer;
// here it backs the PDF extractor adapter's rotation across multiple
// configured extractor endpoints, consulted once per call rather than
// serving traffic itself.
package loadbalancer

import "sync"

type LoadBalancer struct {
	servers []string
	mu      sync.Mutex
	current int
}

func NewLoadBalancer(servers []string) *LoadBalancer {
	return &LoadBalancer{
		servers: servers,
		current: 0,
	}
}

// NextTarget returns the next server in round-robin order, or "" if none
// are configured.
func (lb *LoadBalancer) NextTarget() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if len(lb.servers) == 0 {
		return ""
	}
	server := lb.servers[lb.current]
	lb.current = (lb.current + 1) % len(lb.servers)
	return server
}

// Len reports how many targets are configured.
func (lb *LoadBalancer) Len() int {
	return len(lb.servers)
}
