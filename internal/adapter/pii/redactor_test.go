package pii

import (
	stdjson "encoding/json"
	"net"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"userPassword", true},
		{"PASSWORD_HASH", true},
		{"accessToken", true},
		{"client_secret", true},
		{"apiKey", true},
		{"keyboard", true},
		{"Authorization", true},
		{"creditCard", true},
		{"credit_card", true},
		{"creditcardnumber", true},
		{"ssn", true},
		{"socialSecurity", true},
		{"social_security_number", true},
		{"passportNo", true},
		{"driverLicense", true},
		{"driver_license", true},
		{"email", false},
		{"user_id", false},
		{"action", false},
		{"ip", false},
		{"userAgent", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSensitiveKey(tt.key))
		})
	}
}

func TestSanitize_RedactsAtAnyDepth(t *testing.T) {
	input := map[string]any{
		"user": "alice",
		"password": map[string]any{
			"nested": "whole subtree goes",
		},
		"profile": map[string]any{
			"name":   "Alice",
			"apiKey": 12345,
			"cards": []any{
				map[string]any{"creditCard": "4111111111111111", "label": "main"},
				map[string]any{"label": "backup", "ssn": []any{"1", "2"}},
				"plain",
			},
		},
		"Authorization": "Bearer abc",
	}

	got := Sanitize(input)

	want := map[string]any{
		"user":     "alice",
		"password": RedactedPlaceholder,
		"profile": map[string]any{
			"name":   "Alice",
			"apiKey": RedactedPlaceholder,
			"cards": []any{
				map[string]any{"creditCard": RedactedPlaceholder, "label": "main"},
				map[string]any{"label": "backup", "ssn": RedactedPlaceholder},
				"plain",
			},
		},
		"Authorization": RedactedPlaceholder,
	}
	assert.Equal(t, want, got)
}

func TestSanitize_ScalarsUnchanged(t *testing.T) {
	for _, v := range []any{nil, "text", 42, 3.5, true, []byte("raw")} {
		assert.Equal(t, v, Sanitize(v))
	}
}

func TestSanitize_DoesNotMutateInput(t *testing.T) {
	inner := map[string]any{"token": "t-1", "keep": "yes"}
	list := []any{inner, map[string]any{"secret": "s"}}
	input := map[string]any{"list": list, "password": "hunter2"}

	_ = Sanitize(input)

	assert.Equal(t, "hunter2", input["password"])
	assert.Equal(t, "t-1", inner["token"])
	assert.Equal(t, "s", list[1].(map[string]any)["secret"])
}

func TestSanitize_NonSensitiveIsDeepEqual(t *testing.T) {
	input := map[string]any{
		"action": "login",
		"count":  3,
		"tags":   []any{"a", "b", map[string]any{"x": 1.5}},
		"nested": map[string]any{"deeper": map[string]any{"ok": true}},
		"empty":  map[string]any{},
	}
	assert.Equal(t, input, Sanitize(input))
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []any{
		map[string]any{"password": "x", "list": []any{map[string]any{"token": 1}}},
		[]any{map[string]any{"apiKey": "k"}, "v"},
		map[string]any{"name": "n"},
		"scalar",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once))
	}
}

func TestSanitize_TopLevelArray(t *testing.T) {
	got := Sanitize([]map[string]string{{"password": "p", "id": "1"}})
	assert.Equal(t, []any{map[string]any{"password": RedactedPlaceholder, "id": "1"}}, got)
}

func TestSanitize_Structs(t *testing.T) {
	type Card struct {
		Number string `json:"cardNumber"`
		Holder string `json:"holder"`
	}
	type Base struct {
		Source string `json:"source"`
	}
	type Signup struct {
		Base
		Email     string    `json:"email"`
		Password  string    `json:"password"`
		Card      *Card     `json:"card,omitempty"`
		Nickname  string    `json:"nickname,omitempty"`
		Internal  string    `json:"-"`
		CreatedAt time.Time `json:"createdAt"`
		hidden    string
	}

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	in := Signup{
		Base:      Base{Source: "web"},
		Email:     "a@example.org",
		Password:  "hunter2",
		Card:      &Card{Number: "4111", Holder: "A"},
		Internal:  "x",
		CreatedAt: created,
		hidden:    "h",
	}

	got := Sanitize(in)

	assert.Equal(t, map[string]any{
		"source":    "web",
		"email":     "a@example.org",
		"password":  RedactedPlaceholder,
		"card":      map[string]any{"cardNumber": "4111", "holder": "A"},
		"createdAt": created,
	}, got)
}

func TestSanitize_CyclicMap(t *testing.T) {
	m := map[string]any{"name": "loop"}
	m["self"] = m

	got, ok := Sanitize(m).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "loop", got["name"])
	assert.Equal(t, CircularPlaceholder, got["self"])
}

func TestSanitize_CyclicSlice(t *testing.T) {
	s := make([]any, 2)
	s[0] = "first"
	s[1] = s

	got, ok := Sanitize(s).([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"first", CircularPlaceholder}, got)
}

func TestSanitize_CyclicPointer(t *testing.T) {
	type node struct {
		Name string `json:"name"`
		Next *node  `json:"next"`
	}
	n := &node{Name: "a"}
	n.Next = n

	got := Sanitize(n)
	assert.Equal(t, map[string]any{"name": "a", "next": CircularPlaceholder}, got)
}

type credentials struct {
	user, pass string
}

func (c credentials) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"user": c.user, "password": c.pass, "tags": []string{"a"}})
}

type brokenEncoder struct{}

func (brokenEncoder) MarshalJSON() ([]byte, error) {
	return nil, assert.AnError
}

func TestSanitize_CustomEncodersAreWalked(t *testing.T) {
	in := map[string]any{
		"std":   stdjson.RawMessage(`{"password":"hunter2","nested":[{"token":"t"}],"count":12}`),
		"goccy": json.RawMessage(`{"secret":"s","ok":true}`),
		"creds": credentials{user: "ann", pass: "hunter3"},
		"ptr":   &credentials{user: "bob", pass: "hunter4"},
		"null":  stdjson.RawMessage(nil),
	}

	got := SanitizeMap(in)

	assert.Equal(t, map[string]any{
		"password": RedactedPlaceholder,
		"nested":   []any{map[string]any{"token": RedactedPlaceholder}},
		"count":    json.Number("12"),
	}, got["std"])
	assert.Equal(t, map[string]any{"secret": RedactedPlaceholder, "ok": true}, got["goccy"])
	assert.Equal(t, map[string]any{"user": "ann", "password": RedactedPlaceholder, "tags": []any{"a"}}, got["creds"])
	assert.Equal(t, map[string]any{"user": "bob", "password": RedactedPlaceholder, "tags": []any{"a"}}, got["ptr"])
	assert.Nil(t, got["null"])

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter")
	assert.Contains(t, string(out), `"count":12`)
}

func TestSanitize_ScalarEncodersAreKept(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ip := net.ParseIP("10.0.0.7")
	in := map[string]any{
		"at":     at,
		"atPtr":  &at,
		"ip":     ip,
		"number": stdjson.Number("3.14"),
		"broken": brokenEncoder{},
	}

	got := SanitizeMap(in)

	assert.Equal(t, at, got["at"])
	assert.Equal(t, &at, got["atPtr"])
	assert.Equal(t, ip, got["ip"])
	assert.Equal(t, stdjson.Number("3.14"), got["number"])
	assert.Equal(t, brokenEncoder{}, got["broken"])
}

func TestSanitize_CyclicEmbeddedPointer(t *testing.T) {
	type Node struct {
		*Node
		Name string `json:"name"`
	}
	n := &Node{Name: "root"}
	n.Node = n

	var got any
	require.NotPanics(t, func() { got = Sanitize(n) })
	assert.Equal(t, map[string]any{"Node": CircularPlaceholder, "name": "root"}, got)
}

func TestSanitize_EmbeddedPointerIsFlattened(t *testing.T) {
	type Auth struct {
		Token string `json:"token"`
		User  string `json:"user"`
	}
	type Request struct {
		*Auth
		Path string `json:"path"`
	}

	got := Sanitize(Request{Auth: &Auth{Token: "t", User: "u"}, Path: "/x"})
	assert.Equal(t, map[string]any{"token": RedactedPlaceholder, "user": "u", "path": "/x"}, got)

	got = Sanitize(Request{Path: "/y"})
	assert.Equal(t, map[string]any{"path": "/y"}, got)
}

func TestSanitize_SharedAcyclicIsCopied(t *testing.T) {
	shared := map[string]any{"v": 1}
	in := map[string]any{"a": shared, "b": shared}

	got := Sanitize(in)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"v": 1},
		"b": map[string]any{"v": 1},
	}, got)
}

func TestSanitize_NonStringKeys(t *testing.T) {
	got := Sanitize(map[int]string{7: "seven"})
	assert.Equal(t, map[string]any{"7": "seven"}, got)
}

func TestSanitizeMap_Nil(t *testing.T) {
	assert.Equal(t, map[string]any{}, SanitizeMap(nil))
}
