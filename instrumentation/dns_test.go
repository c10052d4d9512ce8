package instrumentation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDNS_LookupHost(t *testing.T) {
	p, rec := newTestProviders(t)
	inst, err := New(KindDNS, p, nil)
	require.NoError(t, err)
	d := inst.(*DNS)

	addrs, err := d.LookupHost(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1"}, addrs)

	ips, err := d.LookupIPAddr(context.Background(), "::1")
	require.NoError(t, err)
	assert.Len(t, ips, 1)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "dns.lookup", spans[0].Name())
	host, _ := attr(spans[0], DNSHostnameKey)
	assert.Equal(t, "127.0.0.1", host.AsString())
	host, _ = attr(spans[1], DNSHostnameKey)
	assert.Equal(t, "::1", host.AsString())
}

func TestDNS_IgnoreHostnames(t *testing.T) {
	p, rec := newTestProviders(t)
	inst, err := New(KindDNS, p, map[string]any{
		"ignore_hostnames": []string{"127.0.0.1"},
	})
	require.NoError(t, err)

	_, err = inst.(*DNS).LookupHost(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Empty(t, rec.Ended())
}
