// Package lectureimport checks externally authored lecture JSON before it is
// stored. Input is accepted or rejected as a whole.
package lectureimport

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ofuq-backend/internal/models"
)

//go:embed lecture_schema.json
var lectureSchemaJSON []byte

const schemaURL = "schema://lecture.json"

// fieldOrder ranks object keys the way the schema declares them, so the
// first reported error is the first one a reader of the document would hit.
var fieldOrder = map[string]int{
	"title":          0,
	"intro":          1,
	"en":             2,
	"ar":             3,
	"quiz":           4,
	"type":           5,
	"question":       6,
	"options":        7,
	"correctAnswers": 8,
	"explanation":    9,
}

var messages = map[string]string{
	"title":       "Lecture title is required",
	"en":          "English intro is required",
	"ar":          "Arabic intro is required",
	"question":    "Question text is required",
	"explanation": "Explanation is required",
}

// Error locates the first problem in a rejected import.
type Error struct {
	Pointer string `json:"pointer"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Pointer == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Pointer, e.Message)
}

type Validator struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(lectureSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse lecture schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add lecture schema: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile lecture schema: %w", err)
	}

	return &Validator{schema: sch, printer: message.NewPrinter(language.English)}, nil
}

// Validate parses raw and returns the decoded lecture, or an *Error for the
// first failing field.
func (v *Validator) Validate(raw []byte) (*models.LectureImport, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &Error{Message: "invalid JSON: " + err.Error()}
	}

	if err := v.schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		return nil, v.firstError(ve)
	}

	// The schema accepts integral numbers written as 1.0 or 1e0, which
	// encoding/json refuses to put into an int.
	norm, ierr := normalizeIntegers(inst, nil)
	if ierr != nil {
		return nil, ierr
	}
	data, err := json.Marshal(norm)
	if err != nil {
		return nil, fmt.Errorf("re-encode lecture: %w", err)
	}

	var lec models.LectureImport
	if err := json.Unmarshal(data, &lec); err != nil {
		return nil, &Error{Message: "invalid JSON: " + err.Error()}
	}

	if err := checkAnswerIndexes(lec.Quiz); err != nil {
		return nil, err
	}
	return &lec, nil
}

// normalizeIntegers rewrites integral numbers in canonical integer form. An
// integral value that does not fit an int is reported at its location.
func normalizeIntegers(v any, path []string) (any, *Error) {
	switch x := v.(type) {
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(x)) {
			n, err := normalizeIntegers(x[k], append(slices.Clone(path), k))
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
	case []any:
		for i, child := range x {
			n, err := normalizeIntegers(child, append(slices.Clone(path), strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
	case json.Number:
		s := string(x)
		if !strings.ContainsAny(s, ".eE") {
			if _, err := strconv.ParseInt(s, 10, strconv.IntSize); err != nil {
				return nil, &Error{Pointer: pointer(path), Message: fmt.Sprintf("number %s is out of range", s)}
			}
			return x, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return x, nil
		}
		if f < math.MinInt32 || f > math.MaxInt32 {
			return nil, &Error{Pointer: pointer(path), Message: fmt.Sprintf("number %s is out of range", s)}
		}
		return json.Number(strconv.FormatInt(int64(f), 10)), nil
	}
	return v, nil
}

func checkAnswerIndexes(quiz []models.QuizQuestion) *Error {
	for i, q := range quiz {
		for j, a := range q.CorrectAnswers {
			if a >= len(q.Options) {
				return &Error{
					Pointer: fmt.Sprintf("/quiz/%d/correctAnswers/%d", i, j),
					Message: fmt.Sprintf("answer index %d is out of range for %d options", a, len(q.Options)),
				}
			}
		}
	}
	return nil
}

type leaf struct {
	path []string
	kind jsonschema.ErrorKind
}

func (v *Validator) firstError(root *jsonschema.ValidationError) *Error {
	var leaves []leaf
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			leaves = append(leaves, leaf{path: leafPath(e), kind: e.ErrorKind})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(root)

	if len(leaves) == 0 {
		return &Error{Message: root.Error()}
	}

	slices.SortStableFunc(leaves, func(a, b leaf) int { return comparePaths(a.path, b.path) })
	first := leaves[0]

	field := ""
	if n := len(first.path); n > 0 {
		field = first.path[n-1]
	}
	msg, ok := messages[field]
	if !ok || keyword(first.kind) != "minLength" && keyword(first.kind) != "required" {
		msg = first.kind.LocalizedString(v.printer)
	}

	return &Error{Pointer: pointer(first.path), Message: msg}
}

// leafPath points a "required" error at the missing property rather than at
// the object that lacks it.
func leafPath(e *jsonschema.ValidationError) []string {
	path := slices.Clone(e.InstanceLocation)
	if req, ok := e.ErrorKind.(*kind.Required); ok && len(req.Missing) > 0 {
		missing := slices.Clone(req.Missing)
		slices.SortFunc(missing, compareSegments)
		path = append(path, missing[0])
	}
	return path
}

func keyword(k jsonschema.ErrorKind) string {
	kp := k.KeywordPath()
	if len(kp) == 0 {
		return ""
	}
	return kp[len(kp)-1]
}

// comparePaths orders parents before children, array elements by index and
// object keys by schema declaration order.
func comparePaths(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareSegments(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func compareSegments(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return ai - bi
	}

	ar, aok := fieldOrder[a]
	br, bok := fieldOrder[b]
	switch {
	case aok && bok:
		return ar - br
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(a, b)
}

func pointer(path []string) string {
	if len(path) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range path {
		sb.WriteByte('/')
		p = strings.ReplaceAll(p, "~", "~0")
		sb.WriteString(strings.ReplaceAll(p, "/", "~1"))
	}
	return sb.String()
}
