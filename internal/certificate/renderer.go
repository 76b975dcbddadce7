package certificate

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// indonesianMonths はインドネシア語の月名。time.Monthの値-1で引く。
var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// FormatDate はtをインドネシア語の日付（例: 16 Oktober 2026）に整形する。
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), indonesianMonths[t.Month()-1], t.Year())
}

// NewNumber は発行時刻から修了証番号を生成する。
// 秒単位のため、同じ秒に発行すると同じ番号になる。
func NewNumber(t time.Time) string {
	return fmt.Sprintf("CERT-%d", t.Unix())
}

// Data は修了証に印字する内容。
type Data struct {
	// RecipientName は受講者名。
	RecipientName string
	// CourseTitle は修了した講座名。
	CourseTitle string
	// IssuedAt は発行日時。
	IssuedAt time.Time
	// Number は修了証番号。空の場合はIssuedAtから生成する。
	Number string
}

// Renderer は修了証を描画する。状態を持たないため並行に使える。
type Renderer struct {
	// compress はPDFのストリームを圧縮するかどうか。
	compress bool
}

// Option はRendererの設定を変更する。
type Option func(*Renderer)

// WithCompression はストリーム圧縮の有無を指定する。デフォルトは圧縮あり。
func WithCompression(on bool) Option {
	return func(r *Renderer) {
		r.compress = on
	}
}

// NewRenderer はRendererを生成する。
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{compress: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render はdの修了証を1ページのPDFとしてwに書き出す。
func (r *Renderer) Render(w io.Writer, d Data) error {
	if d.Number == "" {
		d.Number = NewNumber(d.IssuedAt)
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetCreationDate(d.IssuedAt)
	pdf.SetTitle("Sertifikat "+d.CourseTitle, true)
	pdf.SetCreator("kursus", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// コアフォントはcp1252のため変換してから書き込む
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()

	// 外枠と内枠
	pdf.SetDrawColor(31, 78, 121)
	pdf.SetLineWidth(2)
	pdf.Rect(10, 10, pageW-20, pageH-20, "D")
	pdf.SetDrawColor(212, 175, 55)
	pdf.SetLineWidth(0.8)
	pdf.Rect(16, 16, pageW-32, pageH-32, "D")

	centered := func(y, h float64, family, style string, size float64, text string) {
		pdf.SetFont(family, style, size)
		pdf.SetXY(20, y)
		pdf.CellFormat(pageW-40, h, tr(text), "", 0, "C", false, 0, "")
	}

	pdf.SetTextColor(31, 78, 121)
	centered(35, 18, "Helvetica", "B", 40, "SERTIFIKAT")
	pdf.SetTextColor(90, 90, 90)
	centered(55, 10, "Helvetica", "", 16, "Penyelesaian Kursus")

	pdf.SetTextColor(60, 60, 60)
	centered(78, 8, "Helvetica", "", 14, "Diberikan kepada")
	pdf.SetTextColor(0, 0, 0)
	centered(90, 16, "Times", "BI", 32, d.RecipientName)

	pdf.SetTextColor(60, 60, 60)
	centered(112, 8, "Helvetica", "", 14, "atas keberhasilannya menyelesaikan kursus")
	pdf.SetTextColor(31, 78, 121)
	centered(122, 12, "Helvetica", "B", 22, d.CourseTitle)

	pdf.SetTextColor(60, 60, 60)
	centered(145, 8, "Helvetica", "", 12, "Tanggal: "+FormatDate(d.IssuedAt))
	centered(153, 8, "Helvetica", "", 12, "Nomor Sertifikat: "+d.Number)

	pdf.SetTextColor(120, 120, 120)
	centered(pageH-35, 6, "Helvetica", "I", 10, "Sertifikat ini diterbitkan secara elektronik dan sah tanpa tanda tangan.")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("PDFの書き出しに失敗: %w", err)
	}
	return nil
}
