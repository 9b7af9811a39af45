package features

import (
	"testing"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

const approvableProfile = "Sinh viên 21 tuổi, GPA: 0.85, trường tier 1, ngành STEM. " +
	"Thu nhập 8,000,000 VND/tháng. Số tiền vay 45,000,000 VND cho học phí."

func newTestExtractor() *Extractor {
	return NewExtractor(domain.DefaultPolicy())
}

func TestExtract_ApprovableProfile(t *testing.T) {
	fs := newTestExtractor().Extract(approvableProfile)

	assert.True(t, fs.IncomeWithinCeiling, "F1 income")
	assert.True(t, fs.AcademicPerformance, "F2 academic")
	assert.True(t, fs.InstitutionTier, "F3 institution")
	assert.True(t, fs.PriorityMajor, "F4 major")
	assert.True(t, fs.GuarantorPresent, "F5 guarantor defaults to present")
	assert.True(t, fs.LoanWithinCeiling, "F6 loan")
	assert.True(t, fs.NoExistingDebt, "F7 debt")
	assert.Equal(t, 7, fs.PassedCount())
	assert.Equal(t, 0, fs.SpecialViolations())
}

func TestExtract_DebtAndNoGuarantor(t *testing.T) {
	profile := approvableProfile + " Tình trạng: đang có nợ. Người bảo lãnh: Không có."
	fs := newTestExtractor().Extract(profile)

	assert.False(t, fs.GuarantorPresent)
	assert.False(t, fs.NoExistingDebt)
	assert.Equal(t, 2, fs.SpecialViolations())
}

func TestExtract_AlwaysCompleteAndIdempotent(t *testing.T) {
	e := newTestExtractor()
	inputs := []string{
		"",
		"   ",
		"random words with no facts at all",
		"GPA: abc, tier: x, vay: ???",
		approvableProfile,
		"💸💸💸 nợ nợ nợ",
	}

	for _, in := range inputs {
		first := e.ExtractDetailed(in)
		second := e.ExtractDetailed(in)
		assert.Equal(t, first, second, "extraction must be deterministic for %q", in)
		assert.Len(t, first.Matched, len(domain.AllFeatures), "every feature needs a rule or default for %q", in)
	}
}

func TestExtract_EmptyProfileDefaults(t *testing.T) {
	res := newTestExtractor().ExtractDetailed("")

	assert.False(t, res.Features.AcademicPerformance, "no GPA fails closed")
	assert.True(t, res.Features.InstitutionTier, "tier defaults to 3")
	assert.Equal(t, defaultTier, res.Values.Tier)
	assert.False(t, res.Features.PriorityMajor)
	assert.True(t, res.Features.GuarantorPresent, "guarantor defaults to present")
	assert.False(t, res.Features.IncomeWithinCeiling, "income defaults above the ceiling")
	assert.False(t, res.Features.LoanWithinCeiling, "unknown loan fails closed")
	assert.True(t, res.Features.NoExistingDebt)
}

func TestExtract_Academic(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		wantGPA float64
		want    bool
	}{
		{"normalized vietnamese", "GPA chuẩn hóa: 0.72", 0.72, true},
		{"alternate accent placement", "GPA chuẩn hoá 0.60", 0.60, false},
		{"normalized english", "Normalized GPA: 0.9", 0.9, true},
		{"ten point scale", "GPA: 8.5", 0.85, true},
		{"explicit ten point scale", "GPA 6/10", 0.6, false},
		{"four point scale", "GPA 3.6/4", 0.9, true},
		{"average score with decimal comma", "Điểm trung bình: 7,2", 0.72, true},
		{"exact threshold", "GPA: 0.65", 0.65, true},
		{"english average score", "average score 5.0", 0.5, false},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.ExtractDetailed(tt.profile)
			assert.InDelta(t, tt.wantGPA, res.Values.GPANormalized, 1e-9)
			assert.Equal(t, tt.want, res.Features.AcademicPerformance)
			assert.NotEqual(t, RuleDefault, res.Matched[domain.FeatureAcademic])
		})
	}
}

func TestExtract_AcademicThresholdIsConfigurable(t *testing.T) {
	policy := domain.DefaultPolicy()
	policy.GPAPassThreshold = 0.7
	strict := NewExtractor(policy)

	assert.False(t, strict.Extract("GPA: 0.68").AcademicPerformance)
	assert.True(t, newTestExtractor().Extract("GPA: 0.68").AcademicPerformance)
}

func TestExtract_Institution(t *testing.T) {
	byTier := newTestExtractor()
	publicPolicy := domain.DefaultPolicy()
	publicPolicy.InstitutionCriterion = domain.InstitutionByPublic
	byPublic := NewExtractor(publicPolicy)

	tests := []struct {
		name       string
		profile    string
		wantTier   bool
		wantPublic bool
	}{
		{"tier one private", "Trường tier 1, tư thục", true, false},
		{"tier four public", "tier 4, trường công lập", false, true},
		{"no tier defaults to three", "Đại học công lập Bách khoa", true, true},
		{"non public phrase", "tier: 2, trường ngoài công lập", true, false},
		{"english public", "Tier-5 public university", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTier, byTier.Extract(tt.profile).InstitutionTier, "tier criterion")
			assert.Equal(t, tt.wantPublic, byPublic.Extract(tt.profile).InstitutionTier, "public criterion")
		})
	}
}

func TestExtract_PriorityMajor(t *testing.T) {
	tests := []struct {
		profile string
		want    bool
	}{
		{"Ngành: IT", true},
		{"it is a nice school", false},
		{"Ngành Y khoa", true},
		{"Điều dưỡng năm 2", true},
		{"Sư phạm Toán", true},
		{"Computer Science", true},
		{"Nông nghiệp ứng dụng", true},
		{"Kinh tế đối ngoại", false},
		{"Marketing", false},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Extract(tt.profile).PriorityMajor, tt.profile)
	}
}

func TestExtract_Guarantor(t *testing.T) {
	tests := []struct {
		profile string
		want    bool
	}{
		{"", true},
		{"Người bảo lãnh: Cha mẹ", true},
		{"Người bảo lãnh: Không có", false},
		{"Bảo lãnh: không có.", false},
		{"Không có người bảo lãnh", false},
		{"Applicant has no guarantor", false},
		{"Guarantor: none", false},
		{"Guarantor: Nonna Rossi", true},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Extract(tt.profile).GuarantorPresent, tt.profile)
	}
}

func TestExtract_Income(t *testing.T) {
	tests := []struct {
		profile string
		wantVND int64
		want    bool
	}{
		{"Thu nhập: 8,000,000 VND/tháng", 8_000_000, true},
		{"thu nhập 8 triệu/tháng", 8_000_000, true},
		{"Thu nhập hộ gia đình 9.500.000 VND/tháng", 9_500_000, false},
		{"Gia đình kiếm 7,5 triệu/tháng", 7_500_000, true},
		{"Monthly income: 12M", 12_000_000, false},
		{"không rõ", defaultIncomeVND, false},
		{"Thu nhập gia đình (2 người lao động): 12 triệu/tháng.", 12_000_000, false},
		{"Thu nhập năm 2024: 20,000,000 VND/tháng.", 20_000_000, false},
		{"Thu nhập năm 2024: 6 triệu/tháng.", 6_000_000, true},
		{"Thu nhập năm 2024 chưa khai báo.", defaultIncomeVND, false},
		{"Thu nhập: 7500000", 7_500_000, true},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		res := e.ExtractDetailed(tt.profile)
		assert.Equal(t, tt.wantVND, res.Values.IncomeVND, tt.profile)
		assert.Equal(t, tt.want, res.Features.IncomeWithinCeiling, tt.profile)
	}
}

func TestExtract_Loan(t *testing.T) {
	tests := []struct {
		profile string
		wantVND int64
		want    bool
	}{
		{"Số tiền vay: 45,000,000 VND", 45_000_000, true},
		{"vay 60 triệu", 60_000_000, true},
		{"Khoản vay đề nghị: 70,000,000 VND", 70_000_000, false},
		{"Loan amount: 50M VND", 50_000_000, true},
		{"vay 3 triệu/tháng", 36_000_000, true},
		{"vay 6 triệu/tháng", 72_000_000, false},
		{"Thu nhập 8 triệu/tháng, cần 40 triệu để vay học phí", 40_000_000, true},
		{"cần tiền học", 0, false},
		{"Khoản vay cho năm học 2025-2026: 100,000,000 VND.", 100_000_000, false},
		{"Số tiền vay (kỳ 1): 90 triệu.", 90_000_000, false},
		{"Khoản vay cho năm học 2025.", 0, false},
		{"Không vay nợ. Thu nhập 5 triệu/tháng", 0, false},
		{"Số tiền vay: 45000000", 45_000_000, true},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		res := e.ExtractDetailed(tt.profile)
		assert.Equal(t, tt.wantVND, res.Values.LoanVND, tt.profile)
		assert.Equal(t, tt.want, res.Features.LoanWithinCeiling, tt.profile)
	}
}

func TestPlausibleAmount(t *testing.T) {
	tests := []struct {
		raw     string
		unit    string
		monthly bool
		want    bool
	}{
		{"2", "", false, false},
		{"2024", "", false, false},
		{"2024", "", true, false},
		{"12", "triệu", false, true},
		{"8,000,000", "", false, true},
		{"12.500.000", "", false, true},
		{"7,5", "", false, false},
		{"45000000", "", false, true},
		{"8", "", true, true},
	}

	for _, tt := range tests {
		num, ok := parseNumber(tt.raw)
		require.True(t, ok, tt.raw)
		assert.Equal(t, tt.want, plausibleAmount(tt.raw, num, tt.unit, tt.monthly), "%s %q monthly=%v", tt.raw, tt.unit, tt.monthly)
	}
}

func TestLoanWithinCeiling_IsDisjunction(t *testing.T) {
	assert.True(t, LoanWithinCeiling(36_000_000))
	assert.True(t, LoanWithinCeiling(59_000_000), "absolute ceiling alone is enough")
	assert.True(t, LoanWithinCeiling(60_000_000))
	assert.False(t, LoanWithinCeiling(60_000_001))
}

func TestExtract_Debt(t *testing.T) {
	tests := []struct {
		profile  string
		wantDebt bool
		rule     string
	}{
		{"Hiện đang có nợ ngân hàng", true, "debt_current_vi"},
		{"có nợ hiện tại 5 triệu", true, "debt_present_vi"},
		{"Sinh viên không có nợ", false, "no_debt_vi"},
		{"chưa có khoản nợ nào", false, "no_debt_vi"},
		{"Applicant currently has debt", true, "debt_current_en"},
		{"no existing debt", false, "no_debt_en"},
		{"Sinh viên có khoản nợ nhỏ", true, "weak_heuristic"},
		{"Sinh viên không vay nợ", false, "weak_heuristic"},
		{"", false, "weak_heuristic"},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		res := e.ExtractDetailed(tt.profile)
		assert.Equal(t, tt.wantDebt, res.Values.HasDebt, tt.profile)
		assert.Equal(t, !tt.wantDebt, res.Features.NoExistingDebt, tt.profile)
		assert.Equal(t, tt.rule, res.Matched[domain.FeatureNoDebt], tt.profile)
	}
}

func TestExtract_DecomposedUnicode(t *testing.T) {
	profile := norm.NFD.String("Tình trạng: đang có nợ. Người bảo lãnh: không có.")
	require.NotEqual(t, norm.NFC.String(profile), profile, "fixture must be decomposed")

	fs := newTestExtractor().Extract(profile)
	assert.False(t, fs.NoExistingDebt)
	assert.False(t, fs.GuarantorPresent)
}

func TestExtract_ApplicationProfileText(t *testing.T) {
	app := domain.Application{
		AgeGroup:            "18-22",
		Age:                 20,
		Gender:              "Nam",
		ProvinceRegion:      "Đà Nẵng",
		UniversityTier:      2,
		PublicUniversity:    true,
		MajorCategory:       "Công nghệ thông tin",
		GPANormalized:       0.78,
		StudyYear:           2,
		FamilyIncome:        6_500_000,
		Guarantor:           "Mẹ",
		LoanAmountRequested: 30_000_000,
		LoanPurpose:         "học phí",
	}

	res := newTestExtractor().ExtractDetailed(app.ProfileText())
	assert.Equal(t, 7, res.Features.PassedCount(), "matched rules: %v", res.Matched)
	assert.Equal(t, int64(6_500_000), res.Values.IncomeVND)
	assert.Equal(t, int64(30_000_000), res.Values.LoanVND)
	assert.Equal(t, 2, res.Values.Tier)

	app.ExistingDebt = true
	app.Guarantor = "Không có"
	app.GPANormalized = 0.5
	fs := newTestExtractor().Extract(app.ProfileText())
	assert.Equal(t, 3, fs.SpecialViolations())
}
