package discovery

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startNameserver(t *testing.T, records map[string][]dns.RR) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			resp := new(dns.Msg)
			resp.SetReply(req)
			rrs, ok := records[req.Question[0].Name]
			if !ok {
				resp.Rcode = dns.RcodeNameError
			}
			resp.Answer = rrs
			w.WriteMsg(resp)
		}),
	}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })
	<-started
	return pc.LocalAddr().String()
}

func srvRecord(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return rr
}

func TestLookupOrdersByPriorityAndWeight(t *testing.T) {
	name := "_registry._tcp.example.org."
	addr := startNameserver(t, map[string][]dns.RR{
		name: {
			srvRecord(t, name+" 60 IN SRV 20 5 8080 backup.example.org."),
			srvRecord(t, name+" 60 IN SRV 10 1 8080 light.example.org."),
			srvRecord(t, name+" 60 IN SRV 10 9 8443 heavy.example.org."),
		},
	})

	r := NewResolver(addr)
	endpoints, err := r.Lookup(context.Background(), "_registry._tcp.example.org")
	require.NoError(t, err)
	require.Len(t, endpoints, 3)
	assert.Equal(t, "heavy.example.org", endpoints[0].Host)
	assert.Equal(t, "light.example.org", endpoints[1].Host)
	assert.Equal(t, "backup.example.org", endpoints[2].Host)

	url, err := r.ResolveURL(context.Background(), name, "https")
	require.NoError(t, err)
	assert.Equal(t, "https://heavy.example.org:8443", url)
}

func TestLookupNoRecords(t *testing.T) {
	addr := startNameserver(t, nil)
	_, err := NewResolver(addr).Lookup(context.Background(), "_registry._tcp.missing.org")
	require.ErrorIs(t, err, ErrNoEndpoints)
}
