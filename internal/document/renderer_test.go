package document

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "seo-offers/internal/common/errors"
	"seo-offers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Helpers
// ==========================

type MockExporter struct{ mock.Mock }

func (m *MockExporter) Export(ctx context.Context, html []byte) ([]byte, error) {
	args := m.Called(ctx, html)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func createTestData() OfferData {
	return OfferData{
		Domain:          "https://stadfirma.se",
		Industry:        "Städtjänster",
		Cities:          []string{"Stockholm", "Uppsala"},
		Keywords:        []string{"Städtjänster Stockholm", "städfirma nära mig"},
		Package:         "pro",
		EstimatedPages:  3,
		EstimatedLinks:  8,
		EstimatedMonths: 12,
		Email:           "anna@example.se",
		Phone:           "070-123 45 67",
		Date:            "2026-04-01",
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return r
}

// ==========================
// Renderer Tests
// ==========================

func TestRender_Content(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Render(createTestData())
	require.NoError(t, err)
	html := string(out)

	for _, want := range []string{
		"SEO PLATFORM",
		"Domän", "Bransch", "Email", "Telefon",
		"https://stadfirma.se", "Städtjänster", "anna@example.se", "070-123 45 67",
		"FOKUSOMRÅDEN", `<span class="tag">Stockholm</span><span class="tag">Uppsala</span>`,
		"MÅLSÖKORD", `<span class="tag">städfirma nära mig</span>`,
		"PRO PAKET",
		r.FormatPrice(3995) + " kr",
		"/månad",
		"<li>Google My Maps</li>",
		"<li>Veckovisa rapporter</li>",
		"Nya sidor", "Backlinks", "Tidsestimat", "12 mån",
		"NÄSTA STEG",
		"Offert genererad: 2026-04-01",
	} {
		assert.Contains(t, html, want)
	}
}

func TestRender_EscapesInput(t *testing.T) {
	r := newTestRenderer(t)
	data := createTestData()
	data.Industry = `<script>alert(1)</script>`

	out, err := r.Render(data)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>alert(1)</script>")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

func TestRender_UnknownPackageOmitsPriceAndFeatures(t *testing.T) {
	r := newTestRenderer(t)
	data := createTestData()
	data.Package = "gold"

	out, err := r.Render(data)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "GOLD PAKET")
	assert.NotContains(t, html, `class="price"`)
	assert.NotContains(t, html, "<li>")
	assert.Contains(t, html, "Tidsestimat")
}

func TestRender_Idempotent(t *testing.T) {
	r := newTestRenderer(t)

	a, err := r.Render(createTestData())
	require.NoError(t, err)
	b, err := r.Render(createTestData())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFormatPrice_GroupsThousands(t *testing.T) {
	r := newTestRenderer(t)

	assert.Equal(t, "995", r.FormatPrice(995))
	got := r.FormatPrice(12000)
	assert.NotEqual(t, "12000", got)
	assert.True(t, strings.HasPrefix(got, "12"))
	assert.True(t, strings.HasSuffix(got, "000"))
}

func TestFileName(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"https://stadfirma.se", "offert-https---stadfirma-se-2026-04-01.pdf"},
		{"Bygg-Malmö.se", "offert-Bygg-Malm--se-2026-04-01.pdf"},
		{"", "offert--2026-04-01.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.domain, "2026-04-01"))
		})
	}
}

func TestFromOffer(t *testing.T) {
	owp := models.OfferWithProject{
		Offer: models.Offer{
			CustomerEmail:   "anna@example.se",
			CustomerPhone:   "0701234567",
			EstimatedPages:  2,
			EstimatedLinks:  4,
			EstimatedMonths: 6,
			Package:         models.PackageElite,
		},
		Project: &models.Project{DomainURL: "https://bygg.se", Industry: "Bygg", Cities: []string{"Malmö"}},
	}

	d := FromOffer(owp, time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, "https://bygg.se", d.Domain)
	assert.Equal(t, "elite", d.Package)
	assert.Equal(t, "2026-04-01", d.Date)
	assert.Equal(t, 4, d.EstimatedLinks)
}

// ==========================
// Service Tests
// ==========================

func TestService_PDF(t *testing.T) {
	exporter := new(MockExporter)
	exporter.On("Export", mock.Anything, mock.MatchedBy(func(html []byte) bool {
		return strings.Contains(string(html), "PRO PAKET")
	})).Return([]byte("%PDF-1.4"), nil)

	svc := NewService(newTestRenderer(t), exporter, nil)
	pdf, name, err := svc.PDF(t.Context(), createTestData())

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)
	assert.Equal(t, "offert-https---stadfirma-se-2026-04-01.pdf", name)
}

func TestService_PDFExportFails(t *testing.T) {
	exporter := new(MockExporter)
	exporter.On("Export", mock.Anything, mock.Anything).Return(nil, errors.New("chrome not found"))

	svc := NewService(newTestRenderer(t), exporter, nil)
	_, _, err := svc.PDF(t.Context(), createTestData())

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDocumentRenderFailed))
}

func TestService_HTML(t *testing.T) {
	svc := NewService(newTestRenderer(t), nil, nil)
	out, err := svc.HTML(createTestData())
	require.NoError(t, err)
	assert.Contains(t, string(out), "<!DOCTYPE html>")
}
