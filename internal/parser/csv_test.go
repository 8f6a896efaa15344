package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vitals-cli/internal/dates"
	"github.com/KaramelBytes/vitals-cli/internal/parser"
)

func utcOptions() parser.Options {
	n := dates.New()
	n.Location = time.UTC
	return parser.Options{Layout: parser.LayoutAdjacent, Normalizer: n}
}

func TestParseFileCSV_BrandAndSkippedRow(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "acme.csv")
	content := "# Brand: Acme,,,\n" +
		"date,largestContentfulPaint,cumulativeLayoutShift,Release\n" +
		"19-Nov-25,2100,0.05,v1.2\n" +
		"not a date,1800,0.01,\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	res, err := parser.ParseFile(p, utcOptions())
	require.NoError(t, err)
	require.Equal(t, 1, res.Dataset.Len())
	assert.Equal(t, "Acme", res.Brand)

	rec := res.Dataset.Records[0]
	assert.Equal(t, "Acme", rec.Brand)
	assert.Equal(t, 2100, rec.LCP)
	assert.InDelta(t, 0.05, rec.CLS, 1e-9)
	assert.Equal(t, "v1.2", rec.Release)
	assert.Equal(t, "19/11/2025", rec.DisplayDate)
	assert.Equal(t, "19-Nov-25", rec.OriginalDate)
	assert.Equal(t, "acme.csv", res.Dataset.Source)

	assert.Equal(t, 1, res.Diagnostics.Accepted)
	assert.Equal(t, 1, res.Diagnostics.Rejected)
	require.Len(t, res.Diagnostics.Rejections, 1)
	assert.Equal(t, 4, res.Diagnostics.Rejections[0].Line)
	assert.Contains(t, res.Diagnostics.Rejections[0].Reason, "invalid date")
}

func TestParseCSV_SortsAndMixesEncodings(t *testing.T) {
	src := parser.CSVText{Filename: "mixed.csv", Text: "date,lcp,cls,release\n" +
		"21/11/2025 0:00,2300,0.03,\n" +
		"19 Nov 1 pm,1900,0.01,\n" +
		"20/11/2025,2000,0.02,v2\n"}

	res, err := parser.ParseSource(src, utcOptions())
	require.NoError(t, err)
	require.Equal(t, 3, res.Dataset.Len())
	assert.Equal(t, []int{1900, 2000, 2300}, lcps(res))
	assert.Equal(t, 13, res.Dataset.Records[0].Date.Hour())
	assert.Empty(t, res.Brand)
	assert.Empty(t, res.Dataset.Records[0].Brand)
}

func TestParseCSV_WideLayout(t *testing.T) {
	row := "20-Nov-25,a,b,c,d,e,f,g,h,i,2450,j,0.125"
	src := parser.CSVText{Filename: "wide.csv", Text: "# Brand: Globex\nDate,x\n" + row + "\n"}
	opt := utcOptions()
	opt.Layout = parser.LayoutWide

	res, err := parser.ParseSource(src, opt)
	require.NoError(t, err)
	require.Equal(t, 1, res.Dataset.Len())
	rec := res.Dataset.Records[0]
	assert.Equal(t, 2450, rec.LCP)
	assert.InDelta(t, 0.125, rec.CLS, 1e-9)
	assert.Empty(t, rec.Release)
	assert.Equal(t, "Globex", rec.Brand)
}

func TestParseCSV_HeaderNotFound(t *testing.T) {
	src := parser.CSVText{Filename: "bad.csv", Text: "# Brand: Acme\nfoo,bar\n1,2\n"}
	_, err := parser.ParseSource(src, utcOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrHeaderNotFound))

	var fe *parser.FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "HEADER_NOT_FOUND", fe.Code())
	assert.Contains(t, err.Error(), "# Brand: BrandName")
}

func TestParseCSV_EmptyResult(t *testing.T) {
	src := parser.CSVText{Filename: "empty.csv", Text: "date,lcp,cls\n31/02/2025,100,0.1\n1/1/2025,abc,0.1\n1/1/2025,100,\n"}
	_, err := parser.ParseSource(src, utcOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrEmptyResult))
}

func TestParseCSV_SkipsCommentsAndBlankLines(t *testing.T) {
	src := parser.CSVText{Filename: "c.csv", Text: "\r\n# exported\r\ndate,lcp,cls\r\n\r\n# note\r\n1/8/2025, 1500.9 ,0.2x\r\n"}
	res, err := parser.ParseSource(src, utcOptions())
	require.NoError(t, err)
	require.Equal(t, 1, res.Dataset.Len())
	assert.Equal(t, 1500, res.Dataset.Records[0].LCP)
	assert.InDelta(t, 0.2, res.Dataset.Records[0].CLS, 1e-9)
	assert.Equal(t, 0, res.Diagnostics.Rejected)
}

func TestParseCSV_SanitizesFormulaLabels(t *testing.T) {
	src := parser.CSVText{Filename: "f.csv", Text: "# Brand: =HYPERLINK(x),,\ndate,lcp,cls,release\n1/8/2025,1500,0.1,+rel\n"}
	res, err := parser.ParseSource(src, utcOptions())
	require.NoError(t, err)
	assert.Equal(t, "'=HYPERLINK(x)", res.Brand)
	assert.Equal(t, "'+rel", res.Dataset.Records[0].Release)
}

func TestLayoutByName(t *testing.T) {
	l, err := parser.LayoutByName("WIDE")
	require.NoError(t, err)
	assert.Equal(t, 10, l.LCP)

	l, err = parser.LayoutByName("")
	require.NoError(t, err)
	assert.Equal(t, parser.LayoutAdjacent, l)

	_, err = parser.LayoutByName("tall")
	assert.Error(t, err)
}

func lcps(res *parser.Result) []int {
	out := make([]int, 0, res.Dataset.Len())
	for _, r := range res.Dataset.Records {
		out = append(out, r.LCP)
	}
	return out
}
