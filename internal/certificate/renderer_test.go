package certificate

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// TestFormatDate はインドネシア語の日付整形を検証する。
func TestFormatDate(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Time{
		"16 Oktober 2026":  time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC),
		"1 Januari 2025":   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"31 Desember 2024": time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC),
		"17 Agustus 1945":  time.Date(1945, 8, 17, 10, 0, 0, 0, time.UTC),
	}
	for want, in := range cases {
		if got := FormatDate(in); got != want {
			t.Errorf("FormatDate(%v) = %q, want %q", in, got, want)
		}
	}
}

// TestNewNumber は修了証番号が発行時刻の秒から作られることを検証する。
func TestNewNumber(t *testing.T) {
	t.Parallel()

	at := time.Unix(1792137600, 0)
	if got := NewNumber(at); got != "CERT-1792137600" {
		t.Errorf("NewNumber() = %q, want CERT-1792137600", got)
	}
	if NewNumber(at) != NewNumber(at.Add(500*time.Millisecond)) {
		t.Error("同じ秒の番号が異なる")
	}
}

// TestRender はPDFの描画を検証する。
func TestRender(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	t.Run("PDFとして書き出されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := NewRenderer().Render(&buf, Data{RecipientName: "Budi Santoso", CourseTitle: "Bahasa A1", IssuedAt: issued})
		if err != nil {
			t.Fatalf("Render()でエラーが発生: %v", err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
			t.Errorf("PDFヘッダーがない: %q", buf.Bytes()[:min(buf.Len(), 16)])
		}
		if !bytes.Contains(buf.Bytes(), []byte("%%EOF")) {
			t.Error("PDFの終端がない")
		}
	})

	t.Run("印字内容がページに含まれること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := NewRenderer(WithCompression(false)).Render(&buf, Data{
			RecipientName: "Budi Santoso",
			CourseTitle:   "Bahasa A1",
			IssuedAt:      issued,
			Number:        "CERT-42",
		})
		if err != nil {
			t.Fatalf("Render()でエラーが発生: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"SERTIFIKAT", "Diberikan kepada", "Budi Santoso", "Bahasa A1",
			"16 Oktober 2026", "CERT-42",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("PDFに %q が含まれていない", want)
			}
		}
		if strings.Count(out, " re") < 2 {
			t.Error("枠線が2本描画されていない")
		}
	})

	t.Run("番号を省略すると発行時刻から生成されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := NewRenderer(WithCompression(false)).Render(&buf, Data{CourseTitle: "Bahasa A1", IssuedAt: issued})
		if err != nil {
			t.Fatalf("Render()でエラーが発生: %v", err)
		}
		if !strings.Contains(buf.String(), NewNumber(issued)) {
			t.Errorf("PDFに %q が含まれていない", NewNumber(issued))
		}
	})
}
