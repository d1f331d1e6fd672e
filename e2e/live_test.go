//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ytget/smuledl"
)

func TestLiveResolve(t *testing.T) {
	if os.Getenv("SMULEDL_E2E") == "" {
		t.Skip("SMULEDL_E2E not set")
	}
	url := os.Getenv("SMULEDL_E2E_URL")
	if url == "" {
		t.Skip("SMULEDL_E2E_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := smuledl.New().WithProbe(true).ResolveURL(ctx, url)
	require.NoError(t, err)
	require.NotEmpty(t, res.Media.URL)
	t.Logf("%s -> %s (%s, %d bytes)", url, res.Media.URL, res.Media.ContentType, res.Media.ContentLength)
}
