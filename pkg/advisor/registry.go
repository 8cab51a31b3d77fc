package advisor

import (
	"fmt"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

// DefaultSystemPrompt is used when an advisor carries no prompt of its own.
const DefaultSystemPrompt = "You are a conversational AI assistant Sphinx, meant to help students navigate " +
	"their careers and majors. You can answer questions about majors, careers, and the job market. " +
	"You can also provide advice on how to succeed in college and the workforce. Another one of your " +
	"features is the ability to generate a road map showing users the skills and tools they need to " +
	"learn for a particular career. Do not answer anything unrelated to these topics. Don't give super " +
	"lengthy responses, keep it short and sweet. Avoid using '*' in your responses. You also have the " +
	"ability to rate the person's resume if they upload it. If they searched for a job then rate their " +
	"resume based on the description. Score the resume based on keyword matching, relevant experience, " +
	"education, and certifications, while considering achievements, clarity, and ATS compatibility. " +
	"Example: Rating{example/100} with a short explanation."

var agents = []domain.Advisor{
	{
		ID:          "software-engineer",
		Role:        "Software Engineer",
		Domain:      "Software Development",
		Description: "Designs, develops, and tests software applications to meet specific business needs and requirements.",
		ImageURL:    "/SWE_.png",
	},
	{
		ID:          "project-manager",
		Role:        "Project Manager",
		Domain:      "Project Management",
		Description: "Leads and coordinates cross-functional teams to plan, execute, and deliver projects on time, within budget, and to the required quality standards.",
		ImageURL:    "/PM_.png",
	},
	{
		ID:          "security-engineer",
		Role:        "Security Engineer",
		Domain:      "Cyber Security",
		Description: "Protects computer systems, networks, and sensitive data from unauthorized access by implementing robust security measures and protocols.",
		ImageURL:    "/SOC.png",
	},
	{
		ID:          "data-analyst",
		Role:        "Data Analyst",
		Domain:      "Data Analysis",
		Description: "Collects, organizes, and analyzes complex data to identify trends, patterns, and insights that inform business decisions.",
		ImageURL:    "/DATA_AS.png",
	},
	{
		ID:          "ml-engineer",
		Role:        "Machine Learning Engineer",
		Domain:      "Artificial Intelligence",
		Description: "Designs, develops, and deploys machine learning models and algorithms to solve complex problems and automate tasks.",
		ImageURL:    "/MLE.png",
	},
	{
		ID:          "technical-program-manager",
		Role:        "Technical Program Manager",
		Domain:      "Program Management",
		Description: "Oversees and coordinates multiple related projects to ensure alignment with organizational goals and successful delivery of complex initiatives.",
		ImageURL:    "/TPM.png",
	},
}

type Registry struct {
	byID map[string]domain.Advisor
	all  []domain.Advisor
}

func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]domain.Advisor, len(agents))}
	for _, a := range agents {
		if a.SystemPrompt == "" {
			a.SystemPrompt = DefaultSystemPrompt
		}
		r.byID[a.ID] = a
		r.all = append(r.all, a)
	}
	return r
}

func (r *Registry) All() []domain.Advisor {
	out := make([]domain.Advisor, len(r.all))
	copy(out, r.all)
	return out
}

func (r *Registry) Get(id string) (domain.Advisor, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// WelcomeMessage seeds an empty conversation for the given advisor.
func WelcomeMessage(a domain.Advisor) domain.Message {
	return domain.Message{
		ID:      "welcome",
		Role:    domain.RoleAssistant,
		Content: fmt.Sprintf("Hello! I'm your %s advisor. How can I help you with %s today?", a.Role, a.Domain),
	}
}
