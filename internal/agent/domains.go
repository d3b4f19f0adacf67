package agent

import "github.com/canvass-ai/surveyd/internal/provider"

const agricultureShape = `{
 "farmer_response": "...",
 "confidence": 0.85,
 "key_insights": ["..."],
 "recommendations": ["..."],
 "region_specific_factors": ["..."],
 "follow_up_questions": ["..."]
}`

const educationShape = `{
 "student_response": "...",
 "confidence": 0.85,
 "key_insights": ["..."],
 "recommendations": ["..."],
 "region_specific_factors": ["..."],
 "follow_up_questions": ["..."],
 "education_level": "primary/secondary/higher",
 "infrastructure_needs": ["..."]
}`

const healthcareShape = `{
 "patient_response": "...",
 "confidence": 0.85,
 "key_insights": ["..."],
 "recommendations": ["..."],
 "region_specific_factors": ["..."],
 "follow_up_questions": ["..."],
 "healthcare_facility_type": "primary/secondary/tertiary",
 "urgent_needs": ["..."]
}`

// NewAgriculture creates the agriculture survey agent.
func NewAgriculture(model string) *DomainAgent {
	return &DomainAgent{
		domain:       "agriculture",
		role:         "an agriculture survey agent",
		shapeBlock:   agricultureShape,
		shape:        shapeFromBlock(agricultureShape),
		providerName: provider.NameHF,
		model:        model,
	}
}

// NewEducation creates the education survey agent.
func NewEducation(model string) *DomainAgent {
	return &DomainAgent{
		domain:       "education",
		role:         "an education survey agent",
		shapeBlock:   educationShape,
		shape:        shapeFromBlock(educationShape),
		providerName: provider.NameHF,
		model:        model,
	}
}

// NewHealthcare creates the healthcare survey agent.
func NewHealthcare(model string) *DomainAgent {
	return &DomainAgent{
		domain:       "healthcare",
		role:         "a healthcare survey agent",
		shapeBlock:   healthcareShape,
		shape:        shapeFromBlock(healthcareShape),
		providerName: provider.NameHF,
		model:        model,
	}
}

// DefaultRegistry builds the registry of built-in domain agents, applying
// per-domain model overrides (empty override uses the provider default).
func DefaultRegistry(overrides map[string]string) *Registry {
	r := NewRegistry()
	r.Register(NewAgriculture(overrides["agriculture"]))
	r.Register(NewEducation(overrides["education"]))
	r.Register(NewHealthcare(overrides["healthcare"]))
	return r
}
