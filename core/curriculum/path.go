package curriculum

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Tree locations are addressed with a stable path grammar shared by the change
// log, resource linking and suggestion targeting:
//
//	frontMatter.<field>
//	topics[i](.<field>)
//	topics[i].instructionalUnits[j](.<field>)
//	topics[i].instructionalUnits[j].activities[k](.<field>)
var (
	ErrInvalidPath  = errors.New("invalid tree path")
	ErrUnknownField = errors.New("unknown field for tree path")

	treePathRegex  = regexp.MustCompile(`^topics\[(\d+)\](?:\.instructionalUnits\[(\d+)\](?:\.activities\[(\d+)\])?)?(?:\.(\w+))?$`)
	frontPathRegex = regexp.MustCompile(`^frontMatter\.(\w+)$`)
)

// Path is a parsed tree location. Indices are -1 when absent.
type Path struct {
	FrontMatter bool
	Topic       int
	Unit        int
	Activity    int
	Field       string
}

func TopicPath(i int) Path              { return Path{Topic: i, Unit: -1, Activity: -1} }
func UnitPath(i, j int) Path            { return Path{Topic: i, Unit: j, Activity: -1} }
func ActivityPath(i, j, k int) Path     { return Path{Topic: i, Unit: j, Activity: k} }
func FrontMatterPath(field string) Path { return Path{FrontMatter: true, Topic: -1, Unit: -1, Activity: -1, Field: field} }

// WithField returns a copy of p addressing a leaf field of the same node.
func (p Path) WithField(field string) Path {
	p.Field = field
	return p
}

func (p Path) String() string {
	if p.FrontMatter {
		return "frontMatter." + p.Field
	}
	s := fmt.Sprintf("topics[%d]", p.Topic)
	if p.Unit >= 0 {
		s += fmt.Sprintf(".instructionalUnits[%d]", p.Unit)
		if p.Activity >= 0 {
			s += fmt.Sprintf(".activities[%d]", p.Activity)
		}
	}
	if p.Field != "" {
		s += "." + p.Field
	}
	return s
}

func ParsePath(s string) (Path, error) {
	if m := frontPathRegex.FindStringSubmatch(s); m != nil {
		return FrontMatterPath(m[1]), nil
	}
	m := treePathRegex.FindStringSubmatch(s)
	if m == nil {
		return Path{}, ErrInvalidPath
	}
	p := Path{Topic: -1, Unit: -1, Activity: -1, Field: m[4]}
	p.Topic, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		p.Unit, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		p.Activity, _ = strconv.Atoi(m[3])
	}
	return p, nil
}

// UpdateField sets the leaf field addressed by `path` and returns the previous
// value. It never alters structure or numbering.
func (doc *Document) UpdateField(path, value string) (old string, err error) {
	p, err := ParsePath(path)
	if err != nil {
		return "", err
	}
	if p.Field == "" {
		return "", ErrInvalidPath
	}
	fld, err := doc.fieldAt(p)
	if err != nil {
		return "", err
	}
	old = *fld
	*fld = value
	return old, nil
}

func (doc *Document) fieldAt(p Path) (*string, error) {
	if p.FrontMatter {
		switch p.Field {
		case "title":
			return &doc.FrontMatter.Title, nil
		case "subject":
			return &doc.FrontMatter.Subject, nil
		case "gradeLevel":
			return &doc.FrontMatter.GradeLevel, nil
		case "introduction":
			return &doc.FrontMatter.Introduction, nil
		}
		return nil, ErrUnknownField
	}

	if err := checkIndex(len(doc.Topics), p.Topic); err != nil {
		return nil, err
	}
	topic := &doc.Topics[p.Topic]
	if p.Unit < 0 {
		switch p.Field {
		case "title":
			return &topic.Title, nil
		case "outcomes":
			return &topic.Outcomes, nil
		}
		return nil, ErrUnknownField
	}

	if err := checkIndex(len(topic.Units), p.Unit); err != nil {
		return nil, err
	}
	unit := &topic.Units[p.Unit]
	if p.Activity < 0 {
		switch p.Field {
		case "outcome":
			return &unit.Outcome, nil
		case "strategies":
			return &unit.Strategies, nil
		}
		return nil, ErrUnknownField
	}

	if err := checkIndex(len(unit.Activities), p.Activity); err != nil {
		return nil, err
	}
	act := &unit.Activities[p.Activity]
	switch p.Field {
	case "description":
		return &act.Description, nil
	case "duration":
		return &act.Duration, nil
	case "materials":
		return &act.Materials, nil
	case "objectives":
		return &act.Objectives, nil
	}
	return nil, ErrUnknownField
}

// AttachResource appends a resource-library reference to the node addressed by
// `path`. The path must address a node, not a leaf field.
func (doc *Document) AttachResource(path string, ref ResourceRef) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	if p.Field != "" || p.FrontMatter {
		return ErrInvalidPath
	}
	if err := checkIndex(len(doc.Topics), p.Topic); err != nil {
		return err
	}
	topic := &doc.Topics[p.Topic]
	if p.Unit < 0 {
		topic.Resources = append(topic.Resources, ref)
		return nil
	}
	if err := checkIndex(len(topic.Units), p.Unit); err != nil {
		return err
	}
	unit := &topic.Units[p.Unit]
	if p.Activity < 0 {
		unit.Resources = append(unit.Resources, ref)
		return nil
	}
	if err := checkIndex(len(unit.Activities), p.Activity); err != nil {
		return err
	}
	unit.Activities[p.Activity].Resources = append(unit.Activities[p.Activity].Resources, ref)
	return nil
}

// Suggestion is an externally-generated candidate content block. The generator
// itself lives outside this app; we only insert accepted blocks at a path.
type Suggestion struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// InsertSuggestion inserts a suggestion at the node addressed by `path`:
// a topic path yields a new unit, a unit path yields a new activity.
// Returns the path of the inserted node.
func (doc *Document) InsertSuggestion(path string, sugg Suggestion) (Path, error) {
	p, err := ParsePath(path)
	if err != nil {
		return Path{}, err
	}
	if p.Field != "" || p.FrontMatter || p.Activity >= 0 {
		return Path{}, ErrInvalidPath
	}

	if p.Unit < 0 {
		ui, err := doc.AddUnit(p.Topic)
		if err != nil {
			return Path{}, err
		}
		unit := &doc.Topics[p.Topic].Units[ui]
		unit.Outcome = sugg.Title
		unit.Strategies = sugg.Body
		return UnitPath(p.Topic, ui), nil
	}

	ai, err := doc.AddActivity(p.Topic, p.Unit)
	if err != nil {
		return Path{}, err
	}
	act := &doc.Topics[p.Topic].Units[p.Unit].Activities[ai]
	act.Objectives = sugg.Title
	act.Description = sugg.Body
	return ActivityPath(p.Topic, p.Unit, ai), nil
}
