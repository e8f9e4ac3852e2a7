package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/intent.txt
	intentRaw string

	//go:embed template/router.txt
	routerRaw string

	//go:embed template/domain_classifier.txt
	domainClassifierRaw string

	//go:embed template/closing.txt
	closingRaw string

	//go:embed template/prediction.txt
	predictionRaw string

	//go:embed template/lesson.txt
	lessonRaw string

	//go:embed template/specialist_cardiology.txt
	cardiologyRaw string

	//go:embed template/specialist_orthopedics.txt
	orthopedicsRaw string

	//go:embed template/specialist_pulmonology.txt
	pulmonologyRaw string

	//go:embed template/specialist_endocrinology.txt
	endocrinologyRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Intent           string
	Router           string
	DomainClassifier string
	Closing          string
	Prediction       string
	Lesson           string

	Specialists map[string]string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Intent:           strings.TrimSpace(intentRaw),
		Router:           strings.TrimSpace(routerRaw),
		DomainClassifier: strings.TrimSpace(domainClassifierRaw),
		Closing:          strings.TrimSpace(closingRaw),
		Prediction:       strings.TrimSpace(predictionRaw),
		Lesson:           strings.TrimSpace(lessonRaw),
		Specialists: map[string]string{
			"Cardiology":    strings.TrimSpace(cardiologyRaw),
			"Orthopedics":   strings.TrimSpace(orthopedicsRaw),
			"Pulmonology":   strings.TrimSpace(pulmonologyRaw),
			"Endocrinology": strings.TrimSpace(endocrinologyRaw),
		},
	}
}

// SpecialistInstruction returns the domain instruction, or a generic one
// for domains without a dedicated template.
func (p PromptSet) SpecialistInstruction(domain string) string {
	if instr, ok := p.Specialists[domain]; ok && instr != "" {
		return instr
	}
	return "You are a specialized medical AI assistant for " + domain + "."
}
