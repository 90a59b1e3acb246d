package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/auth"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

func TestConfirmed(t *testing.T) {
	for _, in := range []string{"y\n", "Y", " yes \r\n"} {
		assert.True(t, confirmed(in), in)
	}
	for _, in := range []string{"", "\n", "n", "yep", "no"} {
		assert.False(t, confirmed(in), in)
	}
}

func TestDiffRows_FollowApplyOrder(t *testing.T) {
	diff := domain.DeploymentDiff{
		ToCreate:  []string{"b", "a"},
		ToUpdate:  []string{"c"},
		ToDisable: []string{"d"},
		ToDelete:  []string{"e"},
	}
	assert.Equal(t, [][]string{
		{"create", "b"}, {"create", "a"}, {"update", "c"}, {"disable", "d"}, {"delete", "e"},
	}, diffRows(diff))
}

func TestPrintDiff(t *testing.T) {
	var buf bytes.Buffer
	printDiff(&buf, domain.DeploymentDiff{})
	assert.Contains(t, buf.String(), "catalog is up to date")

	buf.Reset()
	printDiff(&buf, domain.DeploymentDiff{ToDelete: []string{"old-tin"}, Summary: domain.Summarize(0, 0, 0, 1)})
	out := buf.String()
	assert.Contains(t, out, "old-tin")
	assert.Contains(t, out, "0 to create, 0 to update, 0 to disable, 1 to delete")
	assert.Contains(t, out, "permanently deleted")

	buf.Reset()
	printDiff(&buf, domain.DeploymentDiff{Warnings: []string{"handle tin is shared by a and b; only a is reconciled"}})
	out = buf.String()
	assert.Contains(t, out, "handle tin is shared")
	assert.Contains(t, out, "catalog is up to date")
}

func TestVesselRows(t *testing.T) {
	rows := vesselRows([]domain.RemoteProduct{
		{ID: "gid://shopify/Product/1", Handle: "tin", Title: "Tin", Enabled: false, Variants: make([]domain.RemoteVariant, 3)},
	})
	assert.Equal(t, [][]string{{"tin", "Tin", "disabled", "3", "gid://shopify/Product/1"}}, rows)
}

func TestHashKeyCmd(t *testing.T) {
	cmd := hashKeyCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader("s3cret\n"))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	hash := strings.TrimSpace(out.String())
	assert.True(t, auth.VerifyAPIKey("s3cret", hash))
}
