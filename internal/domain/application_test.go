package domain

import (
	"errors"
	"strings"
	"testing"
)

func sampleApplication() Application {
	return Application{
		AgeGroup:            "18-22",
		Age:                 21,
		Gender:              "Nữ",
		ProvinceRegion:      "Hà Nội",
		UniversityTier:      1,
		PublicUniversity:    true,
		MajorCategory:       "STEM",
		GPANormalized:       0.85,
		StudyYear:           3,
		FamilyIncome:        8_000_000,
		Guarantor:           "Cha mẹ",
		LoanAmountRequested: 45_000_000,
		LoanPurpose:         "học phí",
	}
}

func TestApplicationProfileText(t *testing.T) {
	text := sampleApplication().ProfileText()

	for _, want := range []string{
		"tier 1",
		"trường công lập",
		"GPA chuẩn hóa: 0.85",
		"Thu nhập: 8,000,000 VND/tháng",
		"không có nợ",
		"Người bảo lãnh: Cha mẹ",
		"Số tiền vay: 45,000,000 VND",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("profile text missing %q:\n%s", want, text)
		}
	}
}

func TestApplicationProfileTextNegatives(t *testing.T) {
	a := sampleApplication()
	a.Guarantor = "Không có"
	a.ExistingDebt = true
	a.PublicUniversity = false
	text := a.ProfileText()

	if !strings.Contains(text, "Người bảo lãnh: không có") {
		t.Errorf("expected explicit no-guarantor phrase:\n%s", text)
	}
	if !strings.Contains(text, "đang có nợ") {
		t.Errorf("expected explicit debt phrase:\n%s", text)
	}
	if strings.Contains(text, "công lập") {
		t.Errorf("private institution rendered as public:\n%s", text)
	}
}

func TestApplicationValidate(t *testing.T) {
	if err := sampleApplication().Validate(); err != nil {
		t.Fatalf("expected valid application, got %v", err)
	}

	mutations := map[string]func(*Application){
		"age too low":   func(a *Application) { a.Age = 15 },
		"tier too high": func(a *Application) { a.UniversityTier = 6 },
		"gpa above one": func(a *Application) { a.GPANormalized = 1.2 },
		"zero loan":     func(a *Application) { a.LoanAmountRequested = 0 },
		"no major":      func(a *Application) { a.MajorCategory = " " },
	}
	for name, mutate := range mutations {
		a := sampleApplication()
		mutate(&a)
		if err := a.Validate(); !errors.Is(err, ErrInvalidApplication) {
			t.Errorf("%s: expected ErrInvalidApplication, got %v", name, err)
		}
	}
}

func TestFormatVND(t *testing.T) {
	if got := FormatVND(60_000_000); got != "60,000,000" {
		t.Errorf("FormatVND = %q", got)
	}
}
