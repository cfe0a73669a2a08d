package jobagg

import (
	"errors"
	"strings"
	"testing"
)

func TestAnalyzeResumeStrengths(t *testing.T) {
	resume := &ResumeData{
		Skills: []ResumeSkill{
			{Name: "Go", Level: 5, Category: "backend"},
			{Name: "PostgreSQL", Level: 3, Category: "backend"},
			{Name: "Redis", Level: 3, Category: "backend"},
		},
		Certifications: []ResumeCertification{
			{Name: "AWS Certified Developer"},
			{Name: "CKA"},
		},
	}

	a, err := AnalyzeResumeForJobSearch(resume)
	if err != nil {
		t.Fatalf("AnalyzeResumeForJobSearch() error = %v", err)
	}

	wantStrengths := []string{
		"Strong backend foundation (3 skills)",
		"Advanced proficiency: Go",
		"Certified in 2 areas",
	}
	if len(a.Strengths) != len(wantStrengths) {
		t.Fatalf("Strengths = %v, want %v", a.Strengths, wantStrengths)
	}
	for i, want := range wantStrengths {
		if a.Strengths[i] != want {
			t.Errorf("Strengths[%d] = %q, want %q", i, a.Strengths[i], want)
		}
	}
}

func TestAnalyzeResumeImprovements(t *testing.T) {
	resume := &ResumeData{
		Skills: []ResumeSkill{
			{Name: "Go", Level: 3, Category: "backend"},
		},
		Experience: []ResumeExperience{
			{Title: "Developer", Company: "Acme"}, // no responsibilities
		},
	}

	a, err := AnalyzeResumeForJobSearch(resume)
	if err != nil {
		t.Fatalf("AnalyzeResumeForJobSearch() error = %v", err)
	}
	if len(a.Improvements) != 3 {
		t.Fatalf("Improvements = %v, want 3 entries (few skills, no certs, bare experience)", a.Improvements)
	}
	for _, want := range []string{"skills", "certifications", "responsibilities"} {
		found := false
		for _, imp := range a.Improvements {
			if strings.Contains(strings.ToLower(imp), want) {
				found = true
			}
		}
		if !found {
			t.Errorf("no improvement mentioning %q in %v", want, a.Improvements)
		}
	}
}

func TestAnalyzeResumeSuggestedRoles(t *testing.T) {
	tests := []struct {
		name   string
		skills []ResumeSkill
		want   []string
	}{
		{
			name: "full stack",
			skills: []ResumeSkill{
				{Name: "React", Level: 4, Category: "frontend"},
				{Name: "Go", Level: 4, Category: "backend"},
			},
			want: []string{"Back-end Developer", "Front-end Developer", "Full-stack Developer"},
		},
		{
			name: "devops only",
			skills: []ResumeSkill{
				{Name: "Terraform", Level: 4, Category: "devops"},
			},
			want: []string{"DevOps Engineer"},
		},
		{
			name: "no category",
			skills: []ResumeSkill{
				{Name: "Excel", Level: 3},
			},
			want: []string{"Software Engineer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := AnalyzeResumeForJobSearch(&ResumeData{Skills: tt.skills})
			if err != nil {
				t.Fatalf("AnalyzeResumeForJobSearch() error = %v", err)
			}
			if len(a.SuggestedRoles) != len(tt.want) {
				t.Fatalf("SuggestedRoles = %v, want %v", a.SuggestedRoles, tt.want)
			}
			for i, want := range tt.want {
				if a.SuggestedRoles[i] != want {
					t.Errorf("SuggestedRoles[%d] = %q, want %q", i, a.SuggestedRoles[i], want)
				}
			}
		})
	}
}

func TestAnalyzeResumeNil(t *testing.T) {
	if _, err := AnalyzeResumeForJobSearch(nil); !errors.Is(err, ErrEmptyResume) {
		t.Errorf("AnalyzeResumeForJobSearch(nil) error = %v, want ErrEmptyResume", err)
	}
}
