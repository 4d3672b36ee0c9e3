package model

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultProfile fills PROFILE when the resume data carries none.
const DefaultProfile = "To work in a challenging environment that allows me to grow and utilize my skills."

// Record is one row of a repeated template block, keyed by placeholder name.
type Record map[string]string

// Context is the flattened, sanitized data a DOCX template is filled with.
type Context struct {
	Fields map[string]string
	Lists  map[string][]Record
}

// Scalar fields always present in a Context.
var ScalarFields = []string{"FULL_NAME", "JOB_TITLE", "PHONE", "EMAIL", "WEBSITE", "ADDRESS", "PROFILE"}

// List blocks always present in a Context, with the keys each record carries.
var ListFields = map[string][]string{
	"EDUCATION":  {"EDU_YEAR", "DEGREE", "UNIVERSITY", "EDU_DESC"},
	"EXPERIENCE": {"EXP_YEAR", "EXP_JOB_TITLE", "EXP_COMPANY", "EXP_DESC"},
	"AWARDS":     {"AWARD_TITLE", "AWARD_DESC"},
	"EXPERTISE":  {"SKILL"},
	"INTERESTS":  {"INTEREST"},
}

// BuildContext flattens parsed resume data into template fields.
//
// NAME, CONTACT and LOCATION may arrive as the objects the section parser
// produces or as plain top-level keys; both are accepted. Every string is
// passed through Sanitize. Missing values become empty strings.
func BuildContext(data map[string]any) Context {
	ctx := Context{
		Fields: make(map[string]string, len(ScalarFields)),
		Lists:  make(map[string][]Record, len(ListFields)),
	}

	if block, ok := data["NAME"].(map[string]any); ok {
		ctx.Fields["FULL_NAME"] = stringField(block, "NAME")
		ctx.Fields["JOB_TITLE"] = stringField(block, "TITLE")
	} else {
		ctx.Fields["FULL_NAME"] = stringField(data, "NAME")
		ctx.Fields["JOB_TITLE"] = stringField(data, "TITLE")
	}

	contact, ok := data["CONTACT"].(map[string]any)
	if !ok {
		contact = data
	}
	ctx.Fields["PHONE"] = stringField(contact, "PHONE")
	ctx.Fields["EMAIL"] = stringField(contact, "EMAIL")
	ctx.Fields["WEBSITE"] = stringField(contact, "WEBSITE")

	if block, ok := data["LOCATION"].(map[string]any); ok {
		addr := stringField(block, "ADDRESS")
		if addr == "" {
			addr = stringField(block, "LOCATION")
		}
		ctx.Fields["ADDRESS"] = addr
	} else {
		ctx.Fields["ADDRESS"] = stringField(data, "ADDRESS")
	}

	if _, ok := data["PROFILE"]; ok {
		ctx.Fields["PROFILE"] = stringField(data, "PROFILE")
	} else {
		ctx.Fields["PROFILE"] = DefaultProfile
	}

	ctx.Lists["EDUCATION"] = records(data["EDUCATION"], ListFields["EDUCATION"])
	ctx.Lists["EXPERIENCE"] = records(data["EXPERIENCE"], ListFields["EXPERIENCE"])
	ctx.Lists["AWARDS"] = records(data["AWARDS"], ListFields["AWARDS"])
	ctx.Lists["EXPERTISE"] = wrapStrings(data["SKILLS"], "SKILL")
	ctx.Lists["INTERESTS"] = wrapStrings(data["INTERESTS"], "INTEREST")

	return ctx
}

// Sanitize strips characters that collide with template placeholder syntax.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '{', '}', '#':
			return -1
		}
		return r
	}, s)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	return Sanitize(scalarString(m[key]))
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return ""
	}
}

func records(v any, keys []string) []Record {
	items, ok := v.([]any)
	if !ok {
		return []Record{}
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := make(Record, len(keys))
		for _, k := range keys {
			rec[k] = stringField(m, k)
		}
		out = append(out, rec)
	}
	return out
}

func wrapStrings(v any, key string) []Record {
	items, ok := v.([]any)
	if !ok {
		return []Record{}
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			continue
		}
		out = append(out, Record{key: Sanitize(scalarString(item))})
	}
	return out
}
