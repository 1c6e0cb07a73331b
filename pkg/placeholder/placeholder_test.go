package placeholder

import (
	"reflect"
	"testing"
)

func TestFormatAndName(t *testing.T) {
	token := Format("API_KEY")
	if token != "${API_KEY}" {
		t.Errorf("Format() = %q, want ${API_KEY}", token)
	}
	if Name(token) != "API_KEY" {
		t.Errorf("Name(%q) = %q, want API_KEY", token, Name(token))
	}
	if Name("not a token") != "" {
		t.Errorf("Name() on garbage = %q, want empty", Name("not a token"))
	}
}

func TestIsToken(t *testing.T) {
	testCases := []struct {
		input string
		want  bool
	}{
		{"${API_KEY}", true},
		{"${API_KEY_2}", true},
		{"${lowercase}", false},
		{"prefix ${API_KEY}", false},
		{"${API_KEY} suffix", false},
		{"$API_KEY", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := IsToken(tc.input); got != tc.want {
				t.Errorf("IsToken(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestFindAllNames(t *testing.T) {
	text := "token=${API_KEY}\nurl=${DB_PASSWORD}\nagain=${API_KEY}\n"
	names := FindAllNames(text)
	want := []string{"API_KEY", "DB_PASSWORD"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("FindAllNames() = %v, want %v", names, want)
	}
}

func TestFindAllIndex(t *testing.T) {
	text := "a ${X1} b ${Y2}"
	idx := FindAllIndex(text)
	if len(idx) != 2 {
		t.Fatalf("FindAllIndex() returned %d ranges, want 2", len(idx))
	}
	if text[idx[0][0]:idx[0][1]] != "${X1}" {
		t.Errorf("first range = %q, want ${X1}", text[idx[0][0]:idx[0][1]])
	}
}

func TestDerive(t *testing.T) {
	testCases := []struct {
		category string
		want     string
	}{
		{"api_key", "API_KEY"},
		{"aws", "AWS"},
		{"connection-string", "CONNECTION_STRING"},
		{"private key", "PRIVATE_KEY"},
		{"", "SECRET"},
		{"123abc", "SECRET_123ABC"},
		{"--weird--", "WEIRD"},
	}

	for _, tc := range testCases {
		t.Run(tc.category, func(t *testing.T) {
			if got := Derive(tc.category); got != tc.want {
				t.Errorf("Derive(%q) = %q, want %q", tc.category, got, tc.want)
			}
		})
	}
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{}
	first := Unique("API_KEY", taken)
	if first != "API_KEY" {
		t.Errorf("first Unique() = %q, want API_KEY", first)
	}
	taken[first] = true

	second := Unique("API_KEY", taken)
	if second != "API_KEY_2" {
		t.Errorf("second Unique() = %q, want API_KEY_2", second)
	}
	taken[second] = true

	third := Unique("API_KEY", taken)
	if third != "API_KEY_3" {
		t.Errorf("third Unique() = %q, want API_KEY_3", third)
	}
}

func TestRestore(t *testing.T) {
	text := "key=${API_KEY}\nmissing=${NOPE}\n"
	values := map[string]string{"API_KEY": "sk-12345"}

	restored := Restore(text, func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	})

	want := "key=sk-12345\nmissing=${NOPE}\n"
	if restored != want {
		t.Errorf("Restore() = %q, want %q", restored, want)
	}
}
