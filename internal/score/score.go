// Package score grades how presentable a repository or profile is.
package score

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"gitbrand/internal/github"
)

const GradeScanning = "Scanning"

// Report is the outcome of a health check. Flags name what cost points.
type Report struct {
	Score int      `json:"score"`
	Grade string   `json:"grade"`
	Flags []string `json:"flags"`
}

// Pending reports whether the tree was not available yet.
func (r Report) Pending() bool { return r.Grade == GradeScanning }

// Repository grades repo from its metadata and file tree. With an empty tree
// the result is a Scanning report without a score.
func Repository(repo github.Repository, tree []github.TreeEntry) Report {
	if len(tree) == 0 {
		return Report{Grade: GradeScanning, Flags: []string{"Initial file analysis in progress..."}}
	}
	var r Report
	if repo.Description != "" {
		r.Score += 20
	} else {
		r.Flags = append(r.Flags, "Missing project description")
	}

	if hasReadme(tree) {
		r.Score += 30
	} else {
		r.Flags = append(r.Flags, "Missing README.md file")
	}

	if professionalName(repo.Name) {
		r.Score += 20
	} else {
		r.Flags = append(r.Flags, "Generic or lowercase naming")
	}

	if len(tree) > 10 {
		r.Score += 30
	} else {
		r.Score += 15
		r.Flags = append(r.Flags, "Low repository file depth")
	}

	switch {
	case r.Score >= 90:
		r.Grade = "A"
	case r.Score >= 75:
		r.Grade = "B"
	case r.Score >= 50:
		r.Grade = "C"
	default:
		r.Grade = "F"
	}
	return r
}

func hasReadme(tree []github.TreeEntry) bool {
	for _, e := range tree {
		if strings.Contains(strings.ToLower(e.Path), "readme.md") {
			return true
		}
	}
	return false
}

func professionalName(name string) bool {
	first, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(first) || strings.ContainsAny(name, "-_")
}

// Profile grades the account profile. A nil profile scores zero.
func Profile(p *github.Profile, avatarURL string) Report {
	if p == nil {
		return Report{Grade: "F", Flags: []string{"No data fetched"}}
	}
	var r Report
	if utf8.RuneCountInString(p.Bio) > 50 {
		r.Score += 40
	} else {
		r.Flags = append(r.Flags, "Bio is missing or too short (Target: 50+ chars)")
	}
	if utf8.RuneCountInString(p.Name) > 2 {
		r.Score += 20
	} else {
		r.Flags = append(r.Flags, "Display name is missing")
	}
	if p.Location != "" {
		r.Score += 20
	} else {
		r.Flags = append(r.Flags, "Location is not specified")
	}
	if avatarURL == "" {
		avatarURL = p.AvatarURL
	}
	if avatarURL != "" && !strings.Contains(avatarURL, "default") {
		r.Score += 20
	} else {
		r.Flags = append(r.Flags, "Professional avatar recommended")
	}

	switch {
	case r.Score >= 90:
		r.Grade = "A"
	case r.Score >= 70:
		r.Grade = "B"
	case r.Score >= 40:
		r.Grade = "C"
	default:
		r.Grade = "F"
	}
	return r
}
