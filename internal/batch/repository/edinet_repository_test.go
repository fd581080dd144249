package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-advisor/internal/batch/config"
	"golang-stock-advisor/pkg/logger"
)

func newEdinetTestRepo(baseURL string) EdinetRepository {
	cfg := &config.Config{}
	cfg.EdinetDB.BaseURL = baseURL
	cfg.EdinetDB.APIKey = "test-key"
	cfg.EdinetDB.MaxRequestPerMinute = 6000
	return NewEdinetRepository(cfg, logger.NewNop())
}

func TestResolveVendorCodeShortCircuitsOnVendorShape(t *testing.T) {
	r := newEdinetTestRepo("http://127.0.0.1:0")

	code, ok := r.ResolveVendorCode(context.Background(), "e02144")

	assert.True(t, ok)
	// No server behind the base URL, so this never left the process.
	assert.Equal(t, "E02144", code)
}

func TestResolveVendorCodeViaSearchIsIdempotent(t *testing.T) {
	searchCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "test-key", req.Header.Get("X-API-Key"))
		require.Equal(t, "/search", req.URL.Path)
		searchCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"sec_code": "99840", "edinet_code": "E02778"},
				{"sec_code": "72030", "edinet_code": "E02144"},
			},
		})
	}))
	defer server.Close()

	r := newEdinetTestRepo(server.URL)

	code, ok := r.ResolveVendorCode(context.Background(), "7203.T")
	require.True(t, ok)
	assert.Equal(t, "E02144", code)

	// The 5-digit trailing-zero form matched the 4-digit input, and the
	// second resolve is served from the in-process cache.
	code, ok = r.ResolveVendorCode(context.Background(), "7203")
	require.True(t, ok)
	assert.Equal(t, "E02144", code)
	assert.Equal(t, 1, searchCalls)
}

func TestResolveVendorCodeFallsBackToPagedCompanies(t *testing.T) {
	var companiesPages []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/search":
			w.WriteHeader(http.StatusInternalServerError)
		case "/companies":
			page := req.URL.Query().Get("page")
			switch page {
			case "1":
				companiesPages = append(companiesPages, 1)
				json.NewEncoder(w).Encode(map[string]any{
					"companies": []map[string]any{{"ticker": "1111", "code": "E00001"}},
					"next_page": 3,
				})
			case "3":
				companiesPages = append(companiesPages, 3)
				json.NewEncoder(w).Encode(map[string]any{
					"companies": []map[string]any{{"securities_code": "6758", "edinetCode": "E01774"}},
					"has_next":  false,
				})
			default:
				t.Errorf("unexpected page %q", page)
			}
		}
	}))
	defer server.Close()

	r := newEdinetTestRepo(server.URL)

	code, ok := r.ResolveVendorCode(context.Background(), "6758")

	require.True(t, ok)
	assert.Equal(t, "E01774", code)
	assert.Equal(t, []int{1, 3}, companiesPages)
}

func TestResolveVendorCodeSwallowsAllFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := newEdinetTestRepo(server.URL)

	code, ok := r.ResolveVendorCode(context.Background(), "7203")

	assert.False(t, ok)
	assert.Empty(t, code)
}

func TestResolveVendorCodeUsesInjectedCode(t *testing.T) {
	r := newEdinetTestRepo("http://127.0.0.1:0")
	r.InjectVendorCode("7203.T", "E02144")

	code, ok := r.ResolveVendorCode(context.Background(), "7203")

	require.True(t, ok)
	assert.Equal(t, "E02144", code)
}

func TestGetStatementsConvertsFinancials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/companies/E02144/financials", req.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"fiscal_year": "2023", "revenue": 1000.0, "operating_income": 120.0, "net_income": 80.0, "total_assets": 2000.0, "net_assets": 900.0, "eps": 55.5},
				{"fiscal_year": "2024-03", "revenue": 1100.0},
				{"fiscal_year": "2025-03-31", "revenue": 1200.0},
				{"revenue": 999.0},
			},
		})
	}))
	defer server.Close()

	r := newEdinetTestRepo(server.URL)

	statements, err := r.GetStatements(context.Background(), "E02144")

	require.NoError(t, err)
	// The record without a fiscal year is dropped.
	require.Len(t, statements, 3)
	assert.Equal(t, "2024-03-31", statements[0]["DisclosedDate"])
	assert.Equal(t, 1000.0, statements[0]["NetSales"])
	assert.Equal(t, 120.0, statements[0]["OperatingProfit"])
	assert.Equal(t, 900.0, statements[0]["Equity"])
	assert.Equal(t, 55.5, statements[0]["EarningsPerShare"])
	assert.Equal(t, "2024-03-31", statements[1]["DisclosedDate"])
	assert.Equal(t, "2025-03-31", statements[2]["DisclosedDate"])
}

func TestPickSecurityCodeNormalizesFiveDigitForm(t *testing.T) {
	assert.Equal(t, "7203", pickSecurityCode(map[string]any{"sec_code": "72030"}))
	assert.Equal(t, "72031", pickSecurityCode(map[string]any{"sec_code": "72031"}))
	assert.Equal(t, "7203", pickSecurityCode(map[string]any{"ticker": "7203.T"}))
	assert.Equal(t, "7203", pickSecurityCode(map[string]any{"security_code": 7203.0}))
	assert.Empty(t, pickSecurityCode(map[string]any{"name": "Toyota"}))
}

func TestFiscalYearToDate(t *testing.T) {
	assert.Equal(t, "2025-03-31", fiscalYearToDate("2025-03-31"))
	assert.Equal(t, "2024-03-31", fiscalYearToDate("2024-03"))
	assert.Equal(t, "2024-03-31", fiscalYearToDate("2023"))
	assert.Empty(t, fiscalYearToDate(nil))
	assert.Empty(t, fiscalYearToDate("  "))
}
