package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("missing session returns error", func(t *testing.T) {
		ports, _, _, _ := validPorts()
		ports.SessionID = ""
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSession)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports, _, _, _ := validPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Ports)
		want   error
	}{
		{"no ingestor", func(p *Ports) { p.Ingest = nil }, ErrMissingIngestor},
		{"no catalog", func(p *Ports) { p.Catalog = nil }, ErrMissingCatalog},
		{"no answerer", func(p *Ports) { p.QA = nil }, ErrMissingAnswerer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ports, _, _, _ := validPorts()
			tc.mutate(ports)
			assert.ErrorIs(t, ports.Validate(), tc.want)
		})
	}
}
