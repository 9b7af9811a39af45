package domain

// Feature names one of the seven compliance checks.
type Feature string

const (
	FeatureIncome      Feature = "income_within_ceiling"
	FeatureAcademic    Feature = "academic_performance"
	FeatureInstitution Feature = "institution_tier"
	FeatureMajor       Feature = "priority_major"
	FeatureGuarantor   Feature = "guarantor_present"
	FeatureLoanSize    Feature = "loan_within_ceiling"
	FeatureNoDebt      Feature = "no_existing_debt"
)

// AllFeatures lists the features in F1..F7 order.
var AllFeatures = []Feature{
	FeatureIncome,
	FeatureAcademic,
	FeatureInstitution,
	FeatureMajor,
	FeatureGuarantor,
	FeatureLoanSize,
	FeatureNoDebt,
}

// SpecialFeatures are the high-weight features whose violations drive the rule table.
var SpecialFeatures = []Feature{FeatureAcademic, FeatureGuarantor, FeatureNoDebt}

var legacyFeatureKeys = map[Feature]string{
	FeatureIncome:      "feature_1_thu_nhap",
	FeatureAcademic:    "feature_2_hoc_luc",
	FeatureInstitution: "feature_3_truong_hoc",
	FeatureMajor:       "feature_4_nganh_uu_tien",
	FeatureGuarantor:   "feature_5_bao_lanh",
	FeatureLoanSize:    "feature_6_khoan_vay",
	FeatureNoDebt:      "feature_7_cam_ket_no",
}

// LegacyKey is the numbered payload key older agents use for the feature.
func (f Feature) LegacyKey() string {
	return legacyFeatureKeys[f]
}

// Index returns the 1-based position of the feature, or 0 if unknown.
func (f Feature) Index() int {
	for i, ff := range AllFeatures {
		if ff == f {
			return i + 1
		}
	}
	return 0
}

func (f Feature) Special() bool {
	for _, s := range SpecialFeatures {
		if s == f {
			return true
		}
	}
	return false
}

// FeatureSet is the fully populated vector of feature outcomes. True means
// the application meets the criterion.
type FeatureSet struct {
	IncomeWithinCeiling bool `json:"income_within_ceiling"`
	AcademicPerformance bool `json:"academic_performance"`
	InstitutionTier     bool `json:"institution_tier"`
	PriorityMajor       bool `json:"priority_major"`
	GuarantorPresent    bool `json:"guarantor_present"`
	LoanWithinCeiling   bool `json:"loan_within_ceiling"`
	NoExistingDebt      bool `json:"no_existing_debt"`
}

func (s FeatureSet) Get(f Feature) bool {
	switch f {
	case FeatureIncome:
		return s.IncomeWithinCeiling
	case FeatureAcademic:
		return s.AcademicPerformance
	case FeatureInstitution:
		return s.InstitutionTier
	case FeatureMajor:
		return s.PriorityMajor
	case FeatureGuarantor:
		return s.GuarantorPresent
	case FeatureLoanSize:
		return s.LoanWithinCeiling
	case FeatureNoDebt:
		return s.NoExistingDebt
	}
	return false
}

func (s *FeatureSet) Set(f Feature, v bool) {
	switch f {
	case FeatureIncome:
		s.IncomeWithinCeiling = v
	case FeatureAcademic:
		s.AcademicPerformance = v
	case FeatureInstitution:
		s.InstitutionTier = v
	case FeatureMajor:
		s.PriorityMajor = v
	case FeatureGuarantor:
		s.GuarantorPresent = v
	case FeatureLoanSize:
		s.LoanWithinCeiling = v
	case FeatureNoDebt:
		s.NoExistingDebt = v
	}
}

// PassedCount is the number of features that are true, 0..7.
func (s FeatureSet) PassedCount() int {
	n := 0
	for _, f := range AllFeatures {
		if s.Get(f) {
			n++
		}
	}
	return n
}

// SpecialViolations is the number of special features that are false, 0..3.
func (s FeatureSet) SpecialViolations() int {
	n := 0
	for _, f := range SpecialFeatures {
		if !s.Get(f) {
			n++
		}
	}
	return n
}

// Failed lists the features that did not pass, in F1..F7 order.
func (s FeatureSet) Failed() []Feature {
	var out []Feature
	for _, f := range AllFeatures {
		if !s.Get(f) {
			out = append(out, f)
		}
	}
	return out
}

// FeaturesFromPayload collects any feature values present in p, accepting
// both the named keys and the legacy numbered keys. Named keys win.
func FeaturesFromPayload(p Payload) map[Feature]bool {
	out := make(map[Feature]bool)
	for _, f := range AllFeatures {
		if v, ok := p.Bool(f.LegacyKey()); ok {
			out[f] = v
		}
		if v, ok := p.Bool(string(f)); ok {
			out[f] = v
		}
	}
	return out
}

// FeatureSource records where the aggregator took a feature value from.
type FeatureSource string

const (
	SourceRepredict FeatureSource = "repredict"
	SourceEvaluator FeatureSource = "evaluator"
	SourceProfile   FeatureSource = "profile"
	SourceDefault   FeatureSource = "default"
)
