package xlsx

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"

	"healthlog/internal/domain"
)

// DefaultFileName is used when an export is requested without a name.
const DefaultFileName = "健康记录数据"

var supported = []language.Tag{language.Chinese, language.English}

var matcher = language.NewMatcher(supported)

type labels struct {
	sheet   string
	headers []any
	yes, no string
}

var (
	zhLabels = labels{
		sheet:   "健康记录",
		headers: []any{"日期", "体重(kg)", "饮食评分", "饮水评分", "运动评分", "心情评分", "睡眠评分", "排便情况", "备注"},
		yes:     "是",
		no:      "否",
	}
	enLabels = labels{
		sheet:   "Health Records",
		headers: []any{"Date", "Weight (kg)", "Diet Score", "Water Score", "Exercise Score", "Mood Score", "Sleep Score", "Bowel Movement", "Notes"},
		yes:     "Yes",
		no:      "No",
	}
)

// PickLanguage chooses the export language. An explicit lang wins over the
// Accept-Language header; Chinese is the fallback.
func PickLanguage(lang, acceptLanguage string) language.Tag {
	var tags []language.Tag
	if lang != "" {
		if t, err := language.Parse(lang); err == nil {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		tags, _, _ = language.ParseAcceptLanguage(acceptLanguage)
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

func labelsFor(lang language.Tag) labels {
	if lang == language.English {
		return enLabels
	}
	return zhLabels
}

// ExportFileName sanitizes a user supplied file name and forces the .xlsx
// extension.
func ExportFileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_", "\"", "", "\r", "", "\n", "").Replace(name)
	if name == "" {
		name = DefaultFileName
	}
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		name += ".xlsx"
	}
	return name
}

// Export writes recs as a single-sheet workbook with localized headers. Unset
// scores are written as 0.
func Export(w io.Writer, recs []domain.HealthRecord, lang language.Tag) error {
	l := labelsFor(lang)

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), l.sheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(l.sheet, "A1", &l.headers); err != nil {
		return err
	}
	if err := f.SetRowStyle(l.sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, r := range recs {
		bowel := l.no
		if r.HasBowelMovement != nil && *r.HasBowelMovement {
			bowel = l.yes
		}
		row := []any{
			r.Date,
			r.Weight,
			scoreOrZero(r.DietScore),
			scoreOrZero(r.WaterScore),
			scoreOrZero(r.ExerciseScore),
			scoreOrZero(r.MoodScore),
			scoreOrZero(r.SleepScore),
			bowel,
			r.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(l.sheet, cell, &row); err != nil {
			return err
		}
	}

	widths := []struct {
		from, to string
		width    float64
	}{
		{"A", "A", 12},
		{"B", "H", 10},
		{"I", "I", 30},
	}
	for _, cw := range widths {
		if err := f.SetColWidth(l.sheet, cw.from, cw.to, cw.width); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func scoreOrZero(s *int) int {
	if s == nil {
		return 0
	}
	return *s
}
