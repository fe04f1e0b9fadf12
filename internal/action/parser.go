package action

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Marker introduces a directive inside assistant text.
const Marker = "ACTION:"

type shape int

const (
	shapeOneString shape = iota + 1
	shapeTwoStrings
	shapeObject
)

var verbShapes = map[Verb]shape{
	VerbUpdateBio:     shapeOneString,
	VerbCommitReadme:  shapeTwoStrings,
	VerbUpdateProfile: shapeObject,
	VerbCreateRepo:    shapeObject,
	VerbDeleteRepo:    shapeOneString,
	VerbUpdateAvatar:  shapeOneString,
}

// Result is the outcome of scanning one assistant reply.
type Result struct {
	// Clean is the prose shown to the user: the reply up to the first marker.
	Clean string
	// Raw is the reply from the marker onward, empty when there is no marker.
	Raw string
	// Command is nil when there is no directive or it is malformed.
	Command Command
}

// ParseError describes a directive that was present but unusable.
type ParseError struct {
	Verb   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Verb == "" {
		return "malformed directive: " + e.Reason
	}
	return fmt.Sprintf("malformed %s directive: %s", e.Verb, e.Reason)
}

// Parse extracts the first directive from an assistant reply. The returned
// Result is always usable; a non-nil error only explains why Command is nil
// although a marker was present.
func Parse(text string) (Result, error) {
	idx := strings.Index(text, Marker)
	if idx < 0 {
		return Result{Clean: text}, nil
	}
	res := Result{
		Clean: strings.TrimSpace(text[:idx]),
		Raw:   text[idx:],
	}
	cmd, err := parseDirective(res.Raw)
	if err != nil {
		return res, err
	}
	res.Command = cmd
	return res, nil
}

func parseDirective(raw string) (Command, error) {
	// A second marker ends the first directive.
	if next := strings.Index(raw[len(Marker):], Marker); next >= 0 {
		raw = raw[:len(Marker)+next]
	}
	s := &scanner{src: raw, pos: len(Marker)}
	verb := Verb(s.verb())
	if verb == "" {
		return nil, &ParseError{Reason: "missing verb"}
	}
	sh, ok := verbShapes[verb]
	if !ok {
		return nil, &ParseError{Verb: string(verb), Reason: "unknown verb"}
	}
	fail := func(reason string) (Command, error) {
		return nil, &ParseError{Verb: string(verb), Reason: reason}
	}

	s.skipSpace()
	var cmd Command
	switch sh {
	case shapeOneString:
		arg, err := s.last(false)
		if err != nil {
			return fail(err.Error())
		}
		switch verb {
		case VerbUpdateBio:
			cmd = UpdateBio{Text: arg}
		case VerbDeleteRepo:
			cmd = DeleteRepo{RepoName: arg}
		case VerbUpdateAvatar:
			cmd = UpdateAvatar{ImageURL: arg}
		}
	case shapeTwoStrings:
		repo, err := s.quoted()
		if err != nil {
			return fail("repository: " + err.Error())
		}
		s.skipSpace()
		content, err := s.last(true)
		if err != nil {
			return fail("content: " + err.Error())
		}
		cmd = CommitReadme{RepoName: repo, Content: content}
	case shapeObject:
		obj, err := s.object()
		if err != nil {
			return fail(err.Error())
		}
		switch verb {
		case VerbUpdateProfile:
			cmd, err = profileFromObject(obj)
		case VerbCreateRepo:
			cmd, err = createRepoFromObject(obj)
		}
		if err != nil {
			return fail(err.Error())
		}
	}
	if err := cmd.Validate(); err != nil {
		return fail(err.Error())
	}
	return cmd, nil
}

func profileFromObject(obj map[string]any) (Command, error) {
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a string", k)
		}
		fields[k] = str
	}
	return UpdateProfile{Fields: fields}, nil
}

func createRepoFromObject(obj map[string]any) (Command, error) {
	var c CreateRepo
	name, ok := obj["name"].(string)
	if !ok {
		return nil, fmt.Errorf("name must be a string")
	}
	c.Name = name
	switch d := obj["description"].(type) {
	case nil:
	case string:
		c.Description = d
	default:
		return nil, fmt.Errorf("description must be a string")
	}
	switch p := obj["private"].(type) {
	case nil:
	case bool:
		c.Private = p
	default:
		return nil, fmt.Errorf("private must be a boolean")
	}
	return c, nil
}

// Format renders cmd back into directive text that Parse accepts.
func Format(cmd Command) string {
	var b strings.Builder
	b.WriteString(Marker)
	b.WriteString(string(cmd.Verb()))
	b.WriteByte(' ')
	switch c := cmd.(type) {
	case UpdateBio:
		b.WriteString(quote(c.Text))
	case DeleteRepo:
		b.WriteString(quote(c.RepoName))
	case UpdateAvatar:
		b.WriteString(quote(c.ImageURL))
	case CommitReadme:
		b.WriteString(quote(c.RepoName))
		b.WriteByte(' ')
		b.WriteString(quote(c.Content))
	case UpdateProfile:
		keys := make([]string, 0, len(c.Fields))
		for k := range c.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			vb, _ := json.Marshal(c.Fields[k])
			b.Write(kb)
			b.WriteByte(':')
			b.Write(vb)
		}
		b.WriteByte('}')
	case CreateRepo:
		payload, _ := json.Marshal(struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Private     bool   `json:"private"`
		}{c.Name, c.Description, c.Private})
		b.Write(payload)
	}
	return b.String()
}

func quote(s string) string {
	return `"` + s + `"`
}
