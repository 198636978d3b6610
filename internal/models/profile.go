package models

// Section names one of the four fixed profile groupings reviewed by staff.
type Section string

const (
	SectionPersonal  Section = "personal"
	SectionAcademic  Section = "academic"
	SectionParent    Section = "parent"
	SectionDocuments Section = "documents"
)

// SectionOrder fixes the traversal order used by the verification workflow
// and by declined-field reporting.
var SectionOrder = []Section{SectionPersonal, SectionAcademic, SectionParent, SectionDocuments}

// sectionFields is the single schema table: every reviewable field, keyed by
// section, in declaration order. The verification store, gate and resolver
// all reference this table rather than re-declaring field lists.
var sectionFields = map[Section][]string{
	SectionPersonal: {
		"first_name", "middle_name", "last_name", "gender",
		"date_of_birth", "blood_group", "nationality", "religion",
		"category", "aadhar_number", "phone", "alternate_phone",
		"email", "alternate_email", "permanent_address", "current_address",
	},
	SectionAcademic: {
		"enrollment_number", "course", "branch", "current_semester",
		"admission_year", "class_x_board", "class_x_school", "class_x_year",
		"class_x_percentage", "class_xii_board", "class_xii_school",
		"class_xii_year", "class_xii_percentage", "entrance_exam", "entrance_rank",
	},
	SectionParent: {
		"father_name", "father_occupation", "father_phone", "father_email",
		"mother_name", "mother_occupation", "mother_phone", "mother_email",
		"guardian_name", "guardian_relation", "guardian_phone", "annual_income",
	},
	SectionDocuments: {
		"photo", "signature", "aadhar_card", "class_x_marksheet",
		"class_xii_marksheet", "transfer_certificate", "migration_certificate",
		"character_certificate", "income_certificate", "caste_certificate",
		"domicile_certificate", "entrance_scorecard", "allotment_letter",
		"fee_receipt", "medical_certificate", "gap_certificate",
		"anti_ragging_affidavit", "bonafide_certificate",
	},
}

// SectionFields returns the ordered field list for a section. The returned
// slice must not be mutated.
func SectionFields(section Section) []string {
	return sectionFields[section]
}

// ValidSection reports whether the name maps to a known section.
func ValidSection(section Section) bool {
	_, ok := sectionFields[section]
	return ok
}

// ValidSectionField reports whether the field belongs to the section schema.
func ValidSectionField(section Section, field string) bool {
	for _, f := range sectionFields[section] {
		if f == field {
			return true
		}
	}
	return false
}

// SectionIndex returns the position of the section in traversal order, or -1.
func SectionIndex(section Section) int {
	for i, s := range SectionOrder {
		if s == section {
			return i
		}
	}
	return -1
}
