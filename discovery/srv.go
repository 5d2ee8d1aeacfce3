// Package discovery locates registry API servers through DNS SRV records,
// so provider and admin tools can be pointed at a service name instead of a
// fixed URL.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DefaultNameserver is the systemd-resolved stub listener.
const DefaultNameserver = "127.0.0.53:53"

var ErrNoEndpoints = errors.New("no SRV records found")

// Endpoint is one SRV target.
type Endpoint struct {
	Host     string
	Port     uint16
	Priority uint16
	Weight   uint16
}

// URL renders the endpoint as a base URL for the API client.
func (e Endpoint) URL(scheme string) string {
	return scheme + "://" + net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

type Resolver struct {
	Nameserver string
	Timeout    time.Duration
}

func NewResolver(nameserver string) *Resolver {
	if nameserver == "" {
		nameserver = DefaultNameserver
	}
	return &Resolver{Nameserver: nameserver, Timeout: 5 * time.Second}
}

// Lookup queries name's SRV records and orders them by ascending priority,
// then descending weight.
func (r *Resolver) Lookup(ctx context.Context, name string) ([]Endpoint, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeSRV)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: r.Timeout}
	in, _, err := client.ExchangeContext(ctx, msg, r.Nameserver)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup of %s failed: %w", name, err)
	}
	if in.Rcode != dns.RcodeSuccess && in.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("SRV lookup of %s failed: %s", name, dns.RcodeToString[in.Rcode])
	}

	endpoints := make([]Endpoint, 0, len(in.Answer))
	for _, answer := range in.Answer {
		srv, ok := answer.(*dns.SRV)
		if !ok {
			continue
		}
		endpoints = append(endpoints, Endpoint{
			Host:     strings.TrimSuffix(srv.Target, "."),
			Port:     srv.Port,
			Priority: srv.Priority,
			Weight:   srv.Weight,
		})
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoEndpoints, name)
	}

	sort.SliceStable(endpoints, func(i, j int) bool {
		if endpoints[i].Priority != endpoints[j].Priority {
			return endpoints[i].Priority < endpoints[j].Priority
		}
		return endpoints[i].Weight > endpoints[j].Weight
	})
	return endpoints, nil
}

// ResolveURL returns the base URL of the preferred endpoint.
func (r *Resolver) ResolveURL(ctx context.Context, name, scheme string) (string, error) {
	endpoints, err := r.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	return endpoints[0].URL(scheme), nil
}
