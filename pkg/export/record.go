package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Field is a labelled value printed on a document.
type Field struct {
	Label string
	Value string
}

// CourseLine is one row of a year's course table.
type CourseLine struct {
	Code    string
	Title   string
	Credits string
	Grade   string
}

// YearSection groups the courses of one school year.
type YearSection struct {
	Year       string
	GradeLevel string
	School     string
	Courses    []CourseLine
	Credits    string
	GPA        string
}

// GradeBand maps a score range to a letter on the grading scale legend.
type GradeBand struct {
	Range  string
	Letter string
}

// AcademicRecord is the structured input for transcript and history documents.
type AcademicRecord struct {
	Institution   string
	Title         string
	Student       []Field
	Years         []YearSection
	Summary       []Field
	GradingScale  []GradeBand
	PrincipalName string
	GeneratedAt   time.Time
}

// DefaultGradingScale is the legend printed under the academic summary.
func DefaultGradingScale() []GradeBand {
	return []GradeBand{
		{Range: "90-100", Letter: "A"},
		{Range: "80-89", Letter: "B"},
		{Range: "70-79", Letter: "C"},
		{Range: "60-69", Letter: "D"},
		{Range: "59-Below", Letter: "F"},
	}
}

var recordHeaders = []string{"year", "grade_level", "school", "course_code", "course_title", "credits", "grade", "year_credits", "year_gpa"}

// RecordDataset flattens the record into one CSV row per course.
func RecordDataset(doc AcademicRecord) Dataset {
	rows := make([]map[string]string, 0)
	for _, year := range doc.Years {
		for _, course := range year.Courses {
			rows = append(rows, map[string]string{
				"year":         year.Year,
				"grade_level":  year.GradeLevel,
				"school":       year.School,
				"course_code":  course.Code,
				"course_title": course.Title,
				"credits":      course.Credits,
				"grade":        course.Grade,
				"year_credits": year.Credits,
				"year_gpa":     year.GPA,
			})
		}
	}
	return Dataset{Headers: recordHeaders, Rows: rows, Numeric: []string{"credits", "year_credits", "year_gpa"}}
}

// RenderRecord lays out an academic record: institution header, student
// block, one table per school year, summary with grading scale and the
// principal's signature line.
func (e *PDFExporter) RenderRecord(doc AcademicRecord) ([]byte, error) {
	if len(doc.Years) == 0 {
		return nil, fmt.Errorf("academic record requires at least one year")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	width := 180.0

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, strings.ToUpper(doc.Institution), "", 1, "C", false, 0, "")
	if doc.Title != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 6, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 9)
	for i, field := range doc.Student {
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(width/4, 5, strings.ToUpper(field.Label), "LT", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(width/4, 5, field.Value, "RT", 0, "", false, 0, "")
		if i%2 == 1 || i == len(doc.Student)-1 {
			pdf.Ln(-1)
		}
	}
	pdf.CellFormat(width, 0, "", "T", 1, "", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, "ACADEMIC RECORD", "", 1, "C", false, 0, "")
	for _, year := range doc.Years {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(width/2, 6, "SCHOOL YEAR: "+year.Year, "1", 0, "", true, 0, "")
		pdf.CellFormat(width/2, 6, "GRADE LEVEL: "+year.GradeLevel, "1", 1, "", true, 0, "")
		if year.School != "" {
			pdf.SetFont("Arial", "", 8)
			pdf.CellFormat(width, 5, year.School, "LR", 1, "", false, 0, "")
		}
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(width*0.2, 6, "Code", "1", 0, "", false, 0, "")
		pdf.CellFormat(width*0.5, 6, "Course Title", "1", 0, "", false, 0, "")
		pdf.CellFormat(width*0.15, 6, "Credits Earned", "1", 0, "C", false, 0, "")
		pdf.CellFormat(width*0.15, 6, "Final Grade", "1", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		for _, course := range year.Courses {
			pdf.CellFormat(width*0.2, 5, course.Code, "1", 0, "", false, 0, "")
			pdf.CellFormat(width*0.5, 5, course.Title, "1", 0, "", false, 0, "")
			pdf.CellFormat(width*0.15, 5, course.Credits, "1", 0, "C", false, 0, "")
			pdf.CellFormat(width*0.15, 5, course.Grade, "1", 1, "C", false, 0, "")
		}
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(width/2, 6, "Total Credits: "+year.Credits, "1", 0, "", false, 0, "")
		pdf.CellFormat(width/2, 6, "GPA: "+year.GPA, "1", 1, "R", false, 0, "")
		pdf.Ln(3)
	}

	pdf.Ln(2)
	top := pdf.GetY()
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(width/2, 6, "ACADEMIC SUMMARY", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, field := range doc.Summary {
		pdf.CellFormat(width/4, 5, field.Label, "", 0, "", false, 0, "")
		pdf.CellFormat(width/4, 5, field.Value, "", 1, "", false, 0, "")
	}
	bottom := pdf.GetY()

	scale := doc.GradingScale
	if len(scale) == 0 {
		scale = DefaultGradingScale()
	}
	pdf.SetXY(15+width/2, top)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(width/2, 6, "GRADING SCALE", "", 2, "", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, band := range scale {
		pdf.CellFormat(width/2, 5, fmt.Sprintf("%s = %s", band.Range, band.Letter), "", 2, "", false, 0, "")
	}
	if pdf.GetY() > bottom {
		bottom = pdf.GetY()
	}

	pdf.SetXY(15, bottom+12)
	pdf.CellFormat(width/2, 0, "", "T", 0, "", false, 0, "")
	pdf.CellFormat(width/2, 0, "", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(width/2, 5, "SCHOOL PRINCIPAL'S SIGNATURE", "", 0, "", false, 0, "")
	generated := doc.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.CellFormat(width/2, 5, "Date: "+generated.Format("2006-01-02"), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(width/2, 5, doc.PrincipalName, "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render academic record pdf: %w", err)
	}
	return buf.Bytes(), nil
}
