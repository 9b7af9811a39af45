package domain

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrInvalidApplication = errors.New("invalid application")

// Application is the structured form of a loan request. It is rendered to
// narrative profile text before deliberation so that structured and free-text
// requests flow through the same extractor.
type Application struct {
	AgeGroup            string  `json:"age_group"`
	Age                 int     `json:"age"`
	Gender              string  `json:"gender"`
	ProvinceRegion      string  `json:"province_region"`
	UniversityTier      int     `json:"university_tier"`
	PublicUniversity    bool    `json:"public_university"`
	MajorCategory       string  `json:"major_category"`
	GPANormalized       float64 `json:"gpa_normalized"`
	StudyYear           int     `json:"study_year"`
	Club                string  `json:"club,omitempty"`
	FamilyIncome        int64   `json:"family_income"`
	HasPartTimeJob      bool    `json:"has_part_time_job"`
	ExistingDebt        bool    `json:"existing_debt"`
	Guarantor           string  `json:"guarantor"`
	LoanAmountRequested int64   `json:"loan_amount_requested"`
	LoanPurpose         string  `json:"loan_purpose"`
}

func (a Application) Validate() error {
	switch {
	case a.Age < 16 || a.Age > 30:
		return fmt.Errorf("%w: age must be between 16 and 30", ErrInvalidApplication)
	case a.UniversityTier < 1 || a.UniversityTier > 5:
		return fmt.Errorf("%w: university_tier must be between 1 and 5", ErrInvalidApplication)
	case a.GPANormalized < 0 || a.GPANormalized > 1:
		return fmt.Errorf("%w: gpa_normalized must be between 0 and 1", ErrInvalidApplication)
	case a.StudyYear < 1 || a.StudyYear > 6:
		return fmt.Errorf("%w: study_year must be between 1 and 6", ErrInvalidApplication)
	case a.FamilyIncome < 0:
		return fmt.Errorf("%w: family_income must not be negative", ErrInvalidApplication)
	case a.LoanAmountRequested <= 0:
		return fmt.Errorf("%w: loan_amount_requested must be positive", ErrInvalidApplication)
	case strings.TrimSpace(a.MajorCategory) == "":
		return fmt.Errorf("%w: major_category is required", ErrInvalidApplication)
	}
	return nil
}

// HasGuarantor reports whether the guarantor field names someone.
func (a Application) HasGuarantor() bool {
	g := strings.ToLower(strings.TrimSpace(a.Guarantor))
	switch g {
	case "", "không có", "khong co", "none", "no":
		return false
	}
	return true
}

var vndPrinter = message.NewPrinter(language.English)

// FormatVND renders an amount with thousands separators, e.g. 8,000,000.
func FormatVND(amount int64) string {
	return vndPrinter.Sprintf("%d", amount)
}

// ProfileText renders the application as the narrative profile read by the
// evaluators and the feature extractor.
func (a Application) ProfileText() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Sinh viên %d tuổi (nhóm tuổi %s), giới tính %s, khu vực %s.\n",
		a.Age, orDash(a.AgeGroup), orDash(a.Gender), orDash(a.ProvinceRegion))

	institution := "trường tư thục"
	if a.PublicUniversity {
		institution = "trường công lập"
	}
	fmt.Fprintf(&sb, "Trường đại học tier %d, %s.\n", a.UniversityTier, institution)
	fmt.Fprintf(&sb, "Ngành học: %s, năm %d. GPA chuẩn hóa: %.2f.\n", a.MajorCategory, a.StudyYear, a.GPANormalized)
	if a.Club != "" {
		fmt.Fprintf(&sb, "Câu lạc bộ: %s.\n", a.Club)
	}

	fmt.Fprintf(&sb, "Thu nhập: %s VND/tháng (hộ gia đình).\n", FormatVND(a.FamilyIncome))
	if a.HasPartTimeJob {
		sb.WriteString("Có việc làm thêm.\n")
	} else {
		sb.WriteString("Chưa có việc làm thêm.\n")
	}

	if a.ExistingDebt {
		sb.WriteString("Tình trạng tài chính: đang có nợ.\n")
	} else {
		sb.WriteString("Tình trạng tài chính: không có nợ.\n")
	}

	if a.HasGuarantor() {
		fmt.Fprintf(&sb, "Người bảo lãnh: %s.\n", strings.TrimSpace(a.Guarantor))
	} else {
		sb.WriteString("Người bảo lãnh: không có.\n")
	}

	fmt.Fprintf(&sb, "Số tiền vay: %s VND, mục đích: %s.", FormatVND(a.LoanAmountRequested), orDash(a.LoanPurpose))
	return sb.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
