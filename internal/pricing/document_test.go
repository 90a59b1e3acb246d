package pricing

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/pkg/errors"
)

const sampleYAML = `
vessels:
  - handle: wide-mason
    title: Wide Mason Jar
    wax: [soy, coconut]
    wick: [wood]
    prices:
      soy/wood: "19.00"
      coconut/wood: 21.5
  - handle: legacy-jar
    enabled: false
    wax: [soy]
    wick: [cotton]
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Vessels, 2)

	wide := cfg.Vessels[0]
	assert.Equal(t, "wide-mason", wide.Handle)
	assert.Equal(t, "Wide Mason Jar", wide.Title)
	assert.True(t, wide.Enabled)
	assert.True(t, wide.Desired())

	variants := wide.Variants()
	require.Len(t, variants, 2)
	assert.Equal(t, domain.DesiredVariant{SKU: "WIDE-MASON-SOY-WOOD", Wax: "soy", Wick: "wood", Price: "19.00"}, variants[0])
	assert.Equal(t, "21.50", variants[1].Price)

	legacy := cfg.Vessels[1]
	assert.False(t, legacy.Enabled)
	assert.False(t, legacy.Desired())
	assert.Equal(t, "legacy-jar", legacy.Title)
}

func TestParse_AggregatesEveryProblem(t *testing.T) {
	doc := `
vessels:
  - handle: wide-mason
    wax: [soy, coconut]
    wick: [wood]
    prices:
      soy/wood: "abc"
  - handle: wide-mason
    wax: [soy]
    wick: [wood]
    prices:
      soy/wood: "-1"
  - handle: ""
    enabled: true
    remove: true
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)

	var verr *errors.ErrValidation
	require.True(t, stderrors.As(err, &verr))
	joined := strings.Join(verr.Problems(), "\n")

	assert.Contains(t, joined, `invalid price "abc"`)
	assert.Contains(t, joined, "missing price for soy/wood")
	assert.Contains(t, joined, "missing price for coconut/wood")
	assert.Contains(t, joined, "duplicate of vessels[0]")
	assert.Contains(t, joined, "price must not be negative")
	assert.Contains(t, joined, "vessels[2].handle: required")
	assert.Contains(t, joined, "cannot be set on an enabled vessel")
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("vessels:\n  - handle: a\n    colour: red\n"))
	require.Error(t, err)
}

func TestParse_BadPriceKeys(t *testing.T) {
	doc := `
vessels:
  - handle: tin
    wax: [soy]
    wick: [wood]
    prices:
      soy/wood: "10"
      soywood: "10"
      beeswax/wood: "12"
`
	_, err := Parse([]byte(doc))
	var verr *errors.ErrValidation
	require.True(t, stderrors.As(err, &verr))
	joined := strings.Join(verr.Problems(), "\n")
	assert.Contains(t, joined, `key "soywood" must be wax/wick`)
	assert.Contains(t, joined, `key "beeswax/wood" names an unknown wax or wick`)
}

func TestParse_PricePrecision(t *testing.T) {
	doc := `
vessels:
  - handle: tin
    wax: [soy, coconut]
    wick: [wood]
    prices:
      soy/wood: "18.005"
      coconut/wood: "18.500"
`
	_, err := Parse([]byte(doc))
	var verr *errors.ErrValidation
	require.True(t, stderrors.As(err, &verr))
	require.Equal(t, []string{"vessels[0] (tin).prices: soy/wood: at most two decimal places"}, verr.Problems())

	cfg, err := Parse([]byte(strings.Replace(doc, `"18.005"`, `"18.00"`, 1)))
	require.NoError(t, err)
	variants := cfg.Vessels[0].Variants()
	assert.Equal(t, "18.00", variants[0].Price)
	assert.Equal(t, "18.50", variants[1].Price)
}

func TestDocument_JSONAcceptsNumericPrices(t *testing.T) {
	body := `{"vessels":[{"handle":"tin","wax":["soy"],"wick":["wood"],"prices":{"soy/wood":18}}]}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(body), &doc))

	cfg, err := doc.Config()
	require.NoError(t, err)
	assert.Equal(t, "18.00", cfg.Vessels[0].Variants()[0].Price)
}

func TestParse_RemoveDisablesVessel(t *testing.T) {
	doc := `
vessels:
  - handle: old-tin
    remove: true
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, cfg.Vessels, 1)
	assert.True(t, cfg.Vessels[0].Remove)
	assert.False(t, cfg.Vessels[0].Enabled)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Vessels, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
