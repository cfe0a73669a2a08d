package jobagg

import (
	"fmt"
	"sort"
	"strings"
)

// ResumeAnalysis is static, rule-based advice for a job seeker's resume.
type ResumeAnalysis struct {
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	SuggestedRoles []string `json:"suggestedRoles"`
}

// categoryRoles maps skill categories to the roles they suggest.
var categoryRoles = map[string]string{
	"frontend": "Front-end Developer",
	"backend":  "Back-end Developer",
	"devops":   "DevOps Engineer",
	"data":     "Data Engineer",
	"mobile":   "Mobile Developer",
	"cloud":    "Cloud Engineer",
}

// AnalyzeResumeForJobSearch derives strengths, improvement suggestions and
// suggested roles from static skill-category rules. No scoring, no network.
func AnalyzeResumeForJobSearch(resume *ResumeData) (*ResumeAnalysis, error) {
	if resume == nil {
		return nil, ErrEmptyResume
	}
	a := &ResumeAnalysis{}

	byCategory := make(map[string]int)
	var advanced []string
	for _, s := range resume.Skills {
		cat := strings.ToLower(strings.TrimSpace(s.Category))
		if cat != "" {
			byCategory[cat]++
		}
		if s.Level >= 4 {
			advanced = append(advanced, s.Name)
		}
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	for _, cat := range cats {
		if byCategory[cat] >= 3 {
			a.Strengths = append(a.Strengths, fmt.Sprintf("Strong %s foundation (%d skills)", cat, byCategory[cat]))
		}
	}
	if len(advanced) > 0 {
		a.Strengths = append(a.Strengths, "Advanced proficiency: "+strings.Join(advanced, ", "))
	}
	if len(resume.Certifications) >= 2 {
		a.Strengths = append(a.Strengths, fmt.Sprintf("Certified in %d areas", len(resume.Certifications)))
	}

	if len(resume.Skills) < 5 {
		a.Improvements = append(a.Improvements, "List more skills, fewer than 5 makes keyword matching weak")
	}
	if len(resume.Certifications) == 0 {
		a.Improvements = append(a.Improvements, "Add certifications to strengthen technology signals")
	}
	for _, exp := range resume.Experience {
		if len(exp.Responsibilities) == 0 {
			a.Improvements = append(a.Improvements, "Describe responsibilities for each experience entry")
			break
		}
	}

	for _, cat := range cats {
		if role, ok := categoryRoles[cat]; ok {
			a.SuggestedRoles = append(a.SuggestedRoles, role)
		}
	}
	if byCategory["frontend"] > 0 && byCategory["backend"] > 0 {
		a.SuggestedRoles = append(a.SuggestedRoles, "Full-stack Developer")
	}
	if len(a.SuggestedRoles) == 0 {
		a.SuggestedRoles = append(a.SuggestedRoles, "Software Engineer")
	}

	return a, nil
}
