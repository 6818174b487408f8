package billing

// ChargeType identifies a kind of fee a student can be charged
type ChargeType string

const (
	ChargeTypeEnrollment ChargeType = "ENROLLMENT"
	ChargeTypeRenewal    ChargeType = "RENEWAL"
	ChargeTypeMonthly    ChargeType = "MONTHLY"
	ChargeTypeExam       ChargeType = "EXAM"
	ChargeTypeUniform    ChargeType = "UNIFORM"
	ChargeTypeMaterial   ChargeType = "MATERIAL"
	ChargeTypeFine       ChargeType = "FINE"
)

// String returns the string representation of ChargeType
func (c ChargeType) String() string {
	return string(c)
}

// IsValid returns true if the charge type is valid
func (c ChargeType) IsValid() bool {
	switch c {
	case ChargeTypeEnrollment, ChargeTypeRenewal, ChargeTypeMonthly, ChargeTypeExam,
		ChargeTypeUniform, ChargeTypeMaterial, ChargeTypeFine:
		return true
	}
	return false
}

// AllChargeTypes returns all valid charge types
func AllChargeTypes() []ChargeType {
	return []ChargeType{
		ChargeTypeEnrollment,
		ChargeTypeRenewal,
		ChargeTypeMonthly,
		ChargeTypeExam,
		ChargeTypeUniform,
		ChargeTypeMaterial,
		ChargeTypeFine,
	}
}
