package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestBuildContextFlattensParsedSections(t *testing.T) {
	data := decode(t, `{
		"NAME": {"NAME": "Asha {Rao}", "TITLE": "Data #Analyst"},
		"CONTACT": {"PHONE": "9876543210", "EMAIL": "asha@example.in", "WEBSITE": "https://asha.dev"},
		"LOCATION": {"LOCATION": "Pune, India"},
		"EDUCATION": [{"EDU_YEAR": "2019–2023", "DEGREE": "B.Tech", "UNIVERSITY": "COEP", "EDU_DESC": "CGPA 8.1"}, "junk"],
		"EXPERIENCE": [{"EXP_YEAR": "2023", "EXP_JOB_TITLE": "Analyst", "EXP_COMPANY": "Infosys"}],
		"AWARDS": [{"AWARD_TITLE": "Hackathon", "AWARD_DESC": "1st"}],
		"SKILLS": ["SQL", "Python", {"x": 1}],
		"INTERESTS": ["Chess"]
	}`)

	ctx := BuildContext(data)

	assert.Equal(t, "Asha Rao", ctx.Fields["FULL_NAME"])
	assert.Equal(t, "Data Analyst", ctx.Fields["JOB_TITLE"])
	assert.Equal(t, "9876543210", ctx.Fields["PHONE"])
	assert.Equal(t, "asha@example.in", ctx.Fields["EMAIL"])
	assert.Equal(t, "https://asha.dev", ctx.Fields["WEBSITE"])
	assert.Equal(t, "Pune, India", ctx.Fields["ADDRESS"])
	assert.Equal(t, DefaultProfile, ctx.Fields["PROFILE"])

	require.Len(t, ctx.Lists["EDUCATION"], 1)
	assert.Equal(t, Record{"EDU_YEAR": "2019–2023", "DEGREE": "B.Tech", "UNIVERSITY": "COEP", "EDU_DESC": "CGPA 8.1"}, ctx.Lists["EDUCATION"][0])
	assert.Equal(t, "", ctx.Lists["EXPERIENCE"][0]["EXP_DESC"])
	assert.Equal(t, []Record{{"SKILL": "SQL"}, {"SKILL": "Python"}}, ctx.Lists["EXPERTISE"])
	assert.Equal(t, []Record{{"INTEREST": "Chess"}}, ctx.Lists["INTERESTS"])
}

func TestBuildContextMissingContactIsEmpty(t *testing.T) {
	ctx := BuildContext(map[string]any{"NAME": map[string]any{"NAME": "Ravi"}})

	assert.Equal(t, "", ctx.Fields["PHONE"])
	assert.Equal(t, "", ctx.Fields["EMAIL"])
	assert.Equal(t, "", ctx.Fields["WEBSITE"])
	assert.Equal(t, "", ctx.Fields["ADDRESS"])
	for _, name := range ScalarFields {
		_, ok := ctx.Fields[name]
		assert.True(t, ok, name)
	}
	for name := range ListFields {
		assert.NotNil(t, ctx.Lists[name], name)
		assert.Empty(t, ctx.Lists[name], name)
	}
}

func TestBuildContextTopLevelFallbacks(t *testing.T) {
	ctx := BuildContext(map[string]any{
		"NAME":    "Meera",
		"TITLE":   "Designer",
		"PHONE":   float64(9123456789),
		"EMAIL":   "m@example.com",
		"ADDRESS": "Kochi",
		"PROFILE": "",
	})

	assert.Equal(t, "Meera", ctx.Fields["FULL_NAME"])
	assert.Equal(t, "Designer", ctx.Fields["JOB_TITLE"])
	assert.Equal(t, "9123456789", ctx.Fields["PHONE"])
	assert.Equal(t, "Kochi", ctx.Fields["ADDRESS"])
	assert.Equal(t, "", ctx.Fields["PROFILE"], "explicit empty profile is kept")
}

func TestBuildContextLocationPrefersAddress(t *testing.T) {
	ctx := BuildContext(map[string]any{"LOCATION": map[string]any{"ADDRESS": "Delhi", "LOCATION": "India"}})
	assert.Equal(t, "Delhi", ctx.Fields["ADDRESS"])
}

func TestBuildContextIgnoresErrorRecords(t *testing.T) {
	ctx := BuildContext(map[string]any{
		"SKILLS":    map[string]any{"error": "bad json", "raw": "x"},
		"EDUCATION": map[string]any{"error": "bad json", "raw": ""},
	})
	assert.Empty(t, ctx.Lists["EXPERTISE"])
	assert.Empty(t, ctx.Lists["EDUCATION"])
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"{{FULL_NAME}}":     "FULL_NAME",
		"C# and {Go}":       "C and Go",
		"plain text":        "plain text",
		"":                  "",
		"100% <b>&amp;</b>": "100% <b>&amp;</b>",
	}
	for in, want := range cases {
		got := Sanitize(in)
		assert.Equal(t, want, got, "Sanitize(%q)", in)
		assert.Equal(t, got, Sanitize(got), "Sanitize must be idempotent for %q", in)
	}
}
