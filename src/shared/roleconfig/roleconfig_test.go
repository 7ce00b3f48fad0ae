package roleconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `{
  "colors": {
    "limit": 1,
    "roles": {
      "red":  {"search": "^red$", "primary": 111, "secondary": 112},
      "blue": {"search": "blue",  "primary": 121, "secondary": 122}
    }
  },
  "regions": {
    "limit": 0,
    "roles": {
      "eu": {"search": "europe|eu", "primary": 211, "secondary": 212}
    }
  }
}`

func TestParseAndValidateOK(t *testing.T) {
	doc, err := Parse(validDoc)
	require.NoError(t, err)
	assert.Empty(t, Validate(doc))
	assert.NoError(t, Check(doc))
}

func TestParseStripsCodeFence(t *testing.T) {
	doc, err := Parse("```json\n" + validDoc + "\n```")
	require.NoError(t, err)
	assert.Len(t, doc, 2)

	doc, err = Parse("```" + validDoc + "```")
	require.NoError(t, err)
	assert.Len(t, doc, 2)
}

func TestParseRejectsNonObject(t *testing.T) {
	_, err := Parse(`[1, 2, 3]`)
	assert.Error(t, err)

	_, err = Parse(``)
	assert.Error(t, err)

	_, err = Parse(`{"a": 1} {"b": 2}`)
	assert.Error(t, err)
}

func TestValidateReportsEveryDefect(t *testing.T) {
	doc, err := Parse(`{
	  "a": {"roles": {"x": {"search": "x", "primary": 1, "secondary": 2}}},
	  "b": {"limit": "one", "roles": {"x": {"search": "x", "primary": 1, "secondary": 2}}},
	  "c": {"limit": 1},
	  "d": {"limit": 1, "roles": [1, 2]},
	  "e": {"limit": 1, "roles": {}},
	  "f": {"limit": 1, "roles": {"x": {"primary": 1, "secondary": 2}}},
	  "g": {"limit": 1, "roles": {"x": {"search": 5, "primary": -1, "secondary": 2.5}}}
	}`)
	require.NoError(t, err)

	problems := Validate(doc)
	assert.ElementsMatch(t, []string{
		"Missing category limit for `a`, set to 0 to disable",
		"Category limit for `b` has to be a number",
		"Missing roles for category `c`",
		"Roles in category `d` are not configured properly as an object",
		"Roles for `e` cannot be empty",
		"Role `x` in category `f` is missing field `search`",
		"Field `search` for role `x` in category `g` must be a string (Supports RegEx)",
		"Field `primary` for role `x` in category `g` has to be a number (Role ID)",
		"Field `secondary` for role `x` in category `g` has to be a number (Role ID)",
	}, problems)

	err = Check(doc)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 9)
}

func TestValidateNonObjectCategory(t *testing.T) {
	problems := Validate(Document{"broken": "nope"})
	assert.Equal(t, []string{"Category `broken` must be an object"}, problems)
}

func TestValidateIsDeterministic(t *testing.T) {
	doc, err := Parse(`{"z": {}, "a": {}, "m": {}}`)
	require.NoError(t, err)

	first := Validate(doc)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Validate(doc))
	}
	assert.Equal(t, "Missing category limit for `a`, set to 0 to disable", first[0])
}

func TestDocumentScanValue(t *testing.T) {
	doc, err := Parse(validDoc)
	require.NoError(t, err)

	v, err := doc.Value()
	require.NoError(t, err)

	var back Document
	require.NoError(t, back.Scan(v))
	assert.Empty(t, Validate(back))
	assert.Equal(t, Fingerprint(doc), Fingerprint(back))

	var empty Document
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)

	nilValue, err := Document(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, nilValue)
}

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	a, err := Parse(`{"x": {"limit": 1, "roles": {"r": {"search": "s", "primary": 1, "secondary": 2}}}}`)
	require.NoError(t, err)
	b, err := Parse(`{"x": {"roles": {"r": {"secondary": 2, "primary": 1, "search": "s"}}, "limit": 1}}`)
	require.NoError(t, err)
	c, err := Parse(`{"x": {"limit": 2, "roles": {"r": {"search": "s", "primary": 1, "secondary": 2}}}}`)
	require.NoError(t, err)

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}
