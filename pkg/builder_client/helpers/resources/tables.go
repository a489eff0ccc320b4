package resources

// Tables holds the static lookup data used by the validator and the
// complexity estimator. Tests can substitute their own.
type Tables struct {
	// Alternatives maps a resource type to plausible replacements.
	Alternatives map[string][]string

	// Weights maps a resource type to its implementation weight.
	Weights       map[string]int
	DefaultWeight int
}

// DefaultTables returns the built-in lookup data.
func DefaultTables() Tables {
	return Tables{
		// DSTU2/STU3 names retired in R4 first, then neighbours in the current model.
		Alternatives: map[string][]string{
			"MedicationOrder":        {"MedicationRequest"},
			"MedicationPrescription": {"MedicationRequest"},
			"DeviceUseRequest":       {"DeviceRequest"},
			"DeviceUseStatement":     {"DeviceRequest", "Observation"},
			"ProcedureRequest":       {"ServiceRequest"},
			"ReferralRequest":        {"ServiceRequest"},
			"DiagnosticOrder":        {"ServiceRequest"},
			"DeviceComponent":        {"DeviceDefinition", "Device"},
			"EligibilityRequest":     {"CoverageEligibilityRequest"},
			"EligibilityResponse":    {"CoverageEligibilityResponse"},
			"EnrollmentRequest":      {"Coverage"},
			"Conformance":            {"CapabilityStatement"},
			"Order":                  {"Task", "ServiceRequest"},
			"OrderResponse":          {"Task"},
			"CommunicationRequest":   {"Communication", "Task"},
			"ClinicalImpression":     {"Condition", "Observation"},
			"Sequence":               {"MolecularSequence", "Observation"},
			"Media":                  {"DocumentReference", "Binary"},

			"MedicationRequest":        {"MedicationStatement", "MedicationDispense"},
			"MedicationStatement":      {"MedicationRequest", "MedicationAdministration"},
			"MedicationDispense":       {"MedicationRequest"},
			"MedicationAdministration": {"MedicationStatement", "MedicationRequest"},
			"DiagnosticReport":         {"Observation", "DocumentReference"},
			"DocumentReference":        {"Binary", "DiagnosticReport"},
			"ServiceRequest":           {"Task"},
			"Practitioner":             {"PractitionerRole"},
			"PractitionerRole":         {"Practitioner"},
			"CarePlan":                 {"Goal", "ServiceRequest"},
			"Goal":                     {"CarePlan"},
		},
		Weights: map[string]int{
			"Patient":               2,
			"Practitioner":          1,
			"PractitionerRole":      2,
			"Organization":          1,
			"Location":              1,
			"Observation":           3,
			"Condition":             2,
			"AllergyIntolerance":    2,
			"Immunization":          2,
			"Encounter":             3,
			"Procedure":             3,
			"MedicationRequest":     4,
			"MedicationStatement":   3,
			"Medication":            2,
			"DiagnosticReport":      4,
			"DocumentReference":     3,
			"CarePlan":              4,
			"Goal":                  2,
			"ServiceRequest":        3,
			"Appointment":           3,
			"Schedule":              2,
			"Slot":                  2,
			"Coverage":              3,
			"Claim":                 5,
			"ExplanationOfBenefit":  5,
			"Questionnaire":         4,
			"QuestionnaireResponse": 4,
			"Bundle":                4,
			"Composition":           5,
			"Consent":               4,
		},
		DefaultWeight: 2,
	}
}

// WeightOf returns the weight for a resource type, falling back to DefaultWeight.
func (t Tables) WeightOf(resource string) int {
	if w, ok := t.Weights[resource]; ok {
		return w
	}
	return t.DefaultWeight
}
