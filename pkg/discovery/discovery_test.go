package discovery

import (
	"testing"

	"github.com/example/bakery/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceKeyRoundTrip(t *testing.T) {
	inst := &ServiceInstance{Name: "bakery-api", Host: "10.0.0.7", Port: 8080}
	assert.Equal(t, "/services/bakery-api/10.0.0.7:8080", instanceKey("/services/", inst))
	assert.Equal(t, "/services/bakery-api/", servicePrefix("/services/", "bakery-api"))

	parsed, err := parseInstance("bakery-api", inst.Addr())
	require.NoError(t, err)
	assert.Equal(t, inst, parsed)
}

func TestParseInstanceIPv6AndErrors(t *testing.T) {
	inst, err := parseInstance("api", "[::1]:9090")
	require.NoError(t, err)
	assert.Equal(t, "::1", inst.Host)
	assert.Equal(t, "[::1]:9090", inst.Addr())

	_, err = parseInstance("api", "no-port")
	assert.Error(t, err)
	_, err = parseInstance("api", "host:http")
	assert.Error(t, err)
}

func TestLeaseTTL(t *testing.T) {
	assert.Equal(t, int64(30), leaseTTL(&config.EtcdConfig{}))
	assert.Equal(t, int64(10), leaseTTL(&config.EtcdConfig{LeaseTTL: 10}))
}
