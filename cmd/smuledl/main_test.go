package main

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/types"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"invalid reference", fmt.Errorf("%w: no recording key", types.ErrInvalidReference), exitUsage},
		{"blocked", errs.Blocked("resolve", "https://www.smule.com/redir", nil), exitBlocked},
		{"no token", errs.NotFound("extract"), exitNotFound},
		{"page 404", errs.HTTPStatus("fetch", "https://www.smule.com/x", 404, nil), exitNotFound},
		{"page 500", errs.HTTPStatus("fetch", "https://www.smule.com/x", 500, nil), exitFailure},
		{"wrapped blocked", fmt.Errorf("download failed: %w", errs.Blocked("r", "u", nil)), exitBlocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestInput(t *testing.T) {
	flagEnsemble = false
	assert.Equal(t, "1_2", input(" 1_2 "))

	flagEnsemble = true
	defer func() { flagEnsemble = false }()
	assert.Equal(t, "/c/1_2", input("1_2"))
	assert.Equal(t, "https://www.smule.com/sing-recording/1_2", input("https://www.smule.com/sing-recording/1_2"))

	ref, kind, err := types.ParseRecordingURL(input("1_2"))
	assert.NoError(t, err)
	assert.Equal(t, types.Reference("1_2"), ref)
	assert.Equal(t, types.KindEnsemble, kind)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	assert.NoError(t, rootCmd.Execute())
	assert.Equal(t, "smuledl dev\n", out.String())
}
