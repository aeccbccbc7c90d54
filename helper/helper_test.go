package helper

import (
	"testing"
	"time"

	"github.com/relloyd/xlpipe/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nestedCfg struct {
	Stage string `errorTxt:"stage name" mandatory:"yes"`
}

type testCfg struct {
	Table    string `errorTxt:"table" mandatory:"yes"`
	Optional string `errorTxt:"optional"`
	Rows     int    `errorTxt:"rows" mandatory:"yes"`
	Nested   nestedCfg
	Columns  []string `errorTxt:"columns" mandatory:"yes"`
	hidden   string
}

func TestValidateStructIsPopulated(t *testing.T) {
	err := ValidateStructIsPopulated(&testCfg{})
	require.Error(t, err)
	assert.Equal(t, "please supply values for table, rows, stage name", err.Error())

	err = ValidateStructIsPopulated(&testCfg{Table: "t", Rows: 1, Nested: nestedCfg{Stage: "s"}})
	assert.NoError(t, err)
}

func TestGetDsnEnvVarName(t *testing.T) {
	assert.Equal(t, "XP_SNOW_DEV_DSN", GetDsnEnvVarName(" snow-dev "))
	assert.Equal(t, "XP_LAKE_S3_REGION", GetRegionEnvVarName("lake"))
}

func TestReadValueFromEnvWithDefault(t *testing.T) {
	t.Setenv("XP_TEST_VALUE", "abc")
	assert.Equal(t, "abc", ReadValueFromEnvWithDefault("XP_TEST_VALUE", "def"))
	assert.Equal(t, "def", ReadValueFromEnvWithDefault("XP_TEST_MISSING", "def"))
}

func TestGetStringFromInterface(t *testing.T) {
	log := logger.MustNewLogger("test", "error", false)
	ts := time.Date(2021, 1, 5, 10, 30, 0, 0, time.UTC)
	cases := []struct {
		in       interface{}
		expected string
	}{
		{42, "42"},
		{"AB1v23", "AB1v23"},
		{12.50, "12.5"},
		{ts, "2021-01-05 10:30:00"},
		{[]byte("raw"), "raw"},
		{true, "true"},
		{nil, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, GetStringFromInterface(log, c.in))
	}
}

func TestCsvToStringSliceTrimSpaces(t *testing.T) {
	assert.Equal(t, []string{"id", "type", "store_id"}, CsvToStringSliceTrimSpaces(" id, type ,,store_id"))
}

func TestOrderedMapRoundTrip(t *testing.T) {
	m := StringSliceToOrderedMap([]string{"c", "a", "b"})
	assert.Equal(t, []string{"c", "a", "b"}, OrderedMapValuesToStringSlice(m))
}

func TestQuoteSqlStrings(t *testing.T) {
	assert.Equal(t, "'accepted', 'o''brien'", QuoteSqlStrings([]string{"accepted", "o'brien"}))
}

func TestAtomBool(t *testing.T) {
	var b AtomBool
	assert.False(t, b.Get())
	b.Set(true)
	assert.True(t, b.Get())
}
