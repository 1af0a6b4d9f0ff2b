package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = secret ,broken,=novalue, tenant=rca ")
	require.Equal(t, map[string]string{"api-key": "secret", "tenant": "rca"}, got)
	require.Empty(t, ParseHeaders(""))
}

func TestInitWithoutExporters(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	shutdown, err := Init(context.Background(), Config{ServiceName: "rcad"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
