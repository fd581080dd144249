package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractFloatPrecedence(t *testing.T) {
	record := map[string]any{
		"NetSalesAmount": 200.0,
		"Revenue":        300.0,
	}

	v, ok := ExtractFloat(record, "NetSales", "NetSalesAmount", "Revenue")
	assert.True(t, ok)
	assert.Equal(t, 200.0, v)

	_, ok = ExtractFloat(record, "OperatingProfit")
	assert.False(t, ok)
}

func TestExtractFloatParsesNumericStrings(t *testing.T) {
	record := map[string]any{
		"Close":    "105",
		"NetSales": " 123.4 ",
	}

	v, ok := ExtractFloat(record, "Close")
	assert.True(t, ok)
	assert.Equal(t, 105.0, v)

	v, ok = ExtractFloat(record, "NetSales")
	assert.True(t, ok)
	assert.Equal(t, 123.4, v)
}

func TestExtractFloatRejectsNonNumeric(t *testing.T) {
	record := map[string]any{"Close": "abc", "Volume": true}

	_, ok := ExtractFloat(record, "Close")
	assert.False(t, ok)
	_, ok = ExtractFloat(record, "Volume")
	assert.False(t, ok)
}

func TestExtractList(t *testing.T) {
	payload := map[string]any{
		"meta": "x",
		"results": []any{
			map[string]any{"code": "7203"},
			"garbage",
			map[string]any{"code": "6758"},
		},
	}

	items := ExtractList(payload, "data", "results", "companies", "items")
	assert.Len(t, items, 2)

	bare := []any{map[string]any{"a": 1.0}}
	assert.Len(t, ExtractList(bare, "data"), 1)

	assert.Nil(t, ExtractList(map[string]any{"data": "nope"}, "data"))
}

func TestNormalizeAndParseDate(t *testing.T) {
	assert.Equal(t, "2025-03-31", NormalizeDate("2025/03/31T00:00:00"))

	d, ok := ParseDate("2025-03-31")
	assert.True(t, ok)
	assert.Equal(t, 2025, d.Year())

	_, ok = ParseDate("not a date")
	assert.False(t, ok)
}

func TestBusinessDaysBetween(t *testing.T) {
	// 2025-08-29 is a Friday.
	fri := time.Date(2025, 8, 29, 0, 0, 0, 0, JST())
	mon := time.Date(2025, 9, 1, 0, 0, 0, 0, JST())
	assert.Equal(t, 1, BusinessDaysBetween(fri, mon))
	assert.Equal(t, 0, BusinessDaysBetween(mon, fri))
}
