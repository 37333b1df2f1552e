package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeStringRe(t *testing.T) {
	valid := []string{"ops.tanaka", "user_01", "a-b-c", "ABC123"}
	for _, s := range valid {
		assert.True(t, safeStringRe.MatchString(s), "expected %q to be valid", s)
	}

	invalid := []string{"", "user name", "a@b", "<script>", "semi;colon", "日本語"}
	for _, s := range invalid {
		assert.False(t, safeStringRe.MatchString(s), "expected %q to be invalid", s)
	}
}

func TestPeriodRe(t *testing.T) {
	valid := []string{"2026-01", "2026-09", "2026-12", "1999-10"}
	for _, s := range valid {
		assert.True(t, periodRe.MatchString(s), "expected %q to be valid", s)
	}

	invalid := []string{"2026-00", "2026-13", "2026-1", "202601", "2026/01", "26-01", "2026-01-15"}
	for _, s := range invalid {
		assert.False(t, periodRe.MatchString(s), "expected %q to be invalid", s)
	}
}

func TestSanitizeStruct(t *testing.T) {
	note := "  <b>note</b>  "
	req := struct {
		Name  string
		Note  *string
		Nil   *string
		Count int
	}{
		Name: "  hello  ",
		Note: &note,
	}

	SanitizeStruct(&req)

	assert.Equal(t, "hello", req.Name)
	assert.Equal(t, "&lt;b&gt;note&lt;/b&gt;", *req.Note)
	assert.Nil(t, req.Nil)
	assert.Equal(t, 0, req.Count)
}

func TestSanitizeStruct_IgnoresNonPointer(t *testing.T) {
	req := struct{ Name string }{Name: "  x  "}
	SanitizeStruct(req) // not a pointer, no-op
	assert.Equal(t, "  x  ", req.Name)
}

func TestGrantItem_ContentTypes(t *testing.T) {
	g := GrantItem{Permissions: []string{"payments", "tasks"}}
	types := g.ContentTypes()
	assert.Len(t, types, 2)
	assert.Equal(t, "payments", string(types[0]))
	assert.Equal(t, "tasks", string(types[1]))
}
